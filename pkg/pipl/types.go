// Package pipl reconstructs source-level PIPL (Plugin Information Property
// List) resource definitions from compiled After Effects plugin containers.
//
// Three container formats are supported behind the Source interface: native
// macOS resource forks, Windows PE resource sections, and textual resource
// scripts. A selected Source emits raw property records, the Decoder turns
// them into canonical documents, and the Generator renders resource-script
// text from those documents.
package pipl

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// ContainerType identifies the container format holding the PIPL data.
// Detection is the caller's job; the readers never sniff content themselves.
type ContainerType int

const (
	ContainerResourceFork ContainerType = iota // native macOS resource fork
	ContainerPE                                // Windows PE executable (.aex)
	ContainerScript                            // textual resource script (.r)
)

func (c ContainerType) String() string {
	switch c {
	case ContainerResourceFork:
		return "resource-fork"
	case ContainerPE:
		return "pe"
	case ContainerScript:
		return "script"
	default:
		return fmt.Sprintf("container(%d)", int(c))
	}
}

// RawPropertyRecord is a single undecoded property as it appears in a
// container: a 4-byte tag, the declared payload length, and exactly that many
// payload bytes. Records keep their emission order and duplicates are kept.
type RawPropertyRecord struct {
	Tag    [4]byte
	Length uint32
	Data   []byte
}

// TagString returns the tag as a 4-character code.
func (r RawPropertyRecord) TagString() string {
	return string(r.Tag[:])
}

// RawDocument groups the raw records of one PIPL resource together with the
// enclosing resource's own identity.
type RawDocument struct {
	ID      int16
	Name    string
	Records []RawPropertyRecord
}

// Source is the single contract shared by all container readers: whole
// container bytes in, ordered raw documents out. An otherwise well-formed
// container with no PIPL entries yields an empty slice, not an error.
type Source interface {
	Extract(data []byte) ([]RawDocument, error)
}

// NewSource returns the reader for the given container type.
func NewSource(ct ContainerType, logger hclog.Logger) (Source, error) {
	switch ct {
	case ContainerResourceFork:
		return NewResourceForkReader(logger), nil
	case ContainerPE:
		return NewPEResourceReader(logger), nil
	case ContainerScript:
		return NewScriptReader(logger), nil
	default:
		return nil, fmt.Errorf("unknown container type %v", ct)
	}
}

// Stage is the development-maturity tag encoded in a version word.
type Stage uint32

const (
	StageDevelop Stage = 0
	StageAlpha   Stage = 1
	StageBeta    Stage = 2
	StageRelease Stage = 3
)

// Version is the unpacked form of a packed effect version word.
type Version struct {
	Major uint32
	Minor uint32
	Bug   uint32
	Stage Stage
	Build uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d %s (Build %d)", v.Major, v.Minor, v.Bug, v.Stage, v.Build)
}

// Value is a decoded property value. Exactly one concrete type applies per
// property class; unregistered tags fall back to RawValue.
type Value interface {
	isValue()
}

// StringValue is decoded legacy Mac-compatible text.
type StringValue string

// IntValue is a single 32-bit integer property.
type IntValue uint32

// IntListValue is an ordered list of integers packed per the field's width.
type IntListValue []uint32

// VersionValue is an unpacked version word.
type VersionValue Version

// FlagsValue is the ordered set of symbolic flag names whose OR equals the
// original flag word.
type FlagsValue []string

// SymbolValue is a bare named constant, such as a plugin kind.
type SymbolValue string

// EntryPointValue describes a platform entry point: a platform code byte
// followed by the exported symbol name.
type EntryPointValue struct {
	Platform byte
	Symbol   string
}

// RawValue is the opaque fallback for unregistered tags.
type RawValue []byte

func (StringValue) isValue()     {}
func (IntValue) isValue()        {}
func (IntListValue) isValue()    {}
func (VersionValue) isValue()    {}
func (FlagsValue) isValue()      {}
func (SymbolValue) isValue()     {}
func (EntryPointValue) isValue() {}
func (RawValue) isValue()        {}

// Property is one decoded PIPL property.
type Property struct {
	Tag   [4]byte
	Name  string // script-level field name, or the raw tag for unknown tags
	Value Value
}

// Document is the canonical decoded form of one PIPL resource. It is built
// once by the Decoder and only read afterwards.
type Document struct {
	ID         int16
	Name       string
	Properties []Property
}

// MakeTag builds a 4-byte tag from a 4-character code.
func MakeTag(s string) [4]byte {
	var t [4]byte
	copy(t[:], s)
	return t
}

// Extract runs the full pipeline for one container: select the reader for
// ct, parse raw documents, and decode each into its canonical form. Any
// decode failure aborts the whole run; no partial output is produced.
func Extract(data []byte, ct ContainerType, logger hclog.Logger) ([]Document, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	src, err := NewSource(ct, logger)
	if err != nil {
		return nil, err
	}

	raws, err := src.Extract(data)
	if err != nil {
		return nil, err
	}

	dec := NewDecoder(logger)
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := dec.DecodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	logger.Debug("extraction complete", "container", ct.String(), "documents", len(docs))
	return docs, nil
}
