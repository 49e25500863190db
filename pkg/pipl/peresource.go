package pipl

import (
	"bytes"
	"fmt"
	"unicode/utf16"

	"github.com/hashicorp/go-hclog"
)

const peContainer = "pe"

// maxResourceDepth bounds the resource directory walk. Well-formed PE
// resources are exactly three levels deep (type, name/id, language).
const maxResourceDepth = 4

// PEResourceReader extracts PIPL resources from a Windows PE binary (.aex).
// The PE structures are little-endian, but the PIPL payload inside a leaf is
// always big-endian: the content keeps its fixed macOS byte order.
type PEResourceReader struct {
	logger hclog.Logger
}

// NewPEResourceReader creates a PE resource reader.
func NewPEResourceReader(logger hclog.Logger) *PEResourceReader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PEResourceReader{logger: logger}
}

type peSection struct {
	virtualAddr uint32
	virtualSize uint32
	rawOffset   uint32
	rawSize     uint32
}

type peLeaf struct {
	pipl bool
	id   int16
	name string
	data []byte
}

// Extract locates the resource directory via the PE headers, walks the
// directory tree, and parses every PiPL-typed leaf as a property array. When
// no PiPL type is present it falls back to scanning all leaves for a
// recognizable property-array header.
func (r *PEResourceReader) Extract(data []byte) ([]RawDocument, error) {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return nil, formatErrf(peContainer, 0, "missing MZ signature")
	}

	// e_lfanew at 0x3C points at the PE signature.
	peOff32, _ := readLE32(data, 0x3c)
	peOff := int(peOff32)
	if peOff+4 > len(data) || !bytes.Equal(data[peOff:peOff+4], []byte{'P', 'E', 0, 0}) {
		return nil, formatErrf(peContainer, int64(peOff), "missing PE signature")
	}

	coff := peOff + 4
	numSections16, ok1 := readLE16(data, coff+2)
	optSize16, ok2 := readLE16(data, coff+16)
	if !ok1 || !ok2 {
		return nil, formatErrf(peContainer, int64(coff), "truncated COFF header")
	}

	opt := coff + 20
	magic, ok := readLE16(data, opt)
	if !ok {
		return nil, formatErrf(peContainer, int64(opt), "truncated optional header")
	}

	// Data directory offset differs between PE32 (0x10B) and PE32+ (0x20B).
	var dataDirOff int
	switch magic {
	case 0x10b:
		dataDirOff = opt + 96
	case 0x20b:
		dataDirOff = opt + 112
	default:
		return nil, formatErrf(peContainer, int64(opt), "unknown optional header magic 0x%x", magic)
	}

	// Resource directory is data directory entry 2.
	resRVA, ok := readLE32(data, dataDirOff+2*8)
	if !ok || resRVA == 0 {
		return nil, formatErrf(peContainer, int64(dataDirOff), "no resource directory")
	}

	sections, err := parseSectionTable(data, opt+int(optSize16), int(numSections16))
	if err != nil {
		return nil, err
	}

	resBase, ok := rvaToOffset(sections, resRVA)
	if !ok || int(resBase) >= len(data) {
		return nil, formatErrf(peContainer, int64(resRVA), "resource directory RVA outside sections")
	}

	r.logger.Debug("located resource directory",
		"rva", fmt.Sprintf("0x%x", resRVA),
		"file_offset", fmt.Sprintf("0x%x", resBase),
		"sections", len(sections))

	w := &peWalker{
		data:     data,
		base:     int(resBase),
		sections: sections,
		visited:  map[uint32]bool{},
		logger:   r.logger,
	}
	if err := w.walkDir(0, 0, false, 0, ""); err != nil {
		return nil, err
	}

	leaves := w.piplLeaves()
	if len(leaves) == 0 {
		// No PiPL type level: fall back to leaves that look like a
		// property array.
		for _, leaf := range w.leaves {
			if looksLikePropertyArray(leaf.data) {
				leaves = append(leaves, leaf)
			}
		}
		if len(leaves) > 0 {
			r.logger.Debug("no PiPL type entry, using property-array fallback scan", "leaves", len(leaves))
		}
	}

	docs := []RawDocument{}
	for _, leaf := range leaves {
		records, err := parsePropertyArray(leaf.data, peContainer, 0)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("found PiPL resource", "id", leaf.id, "name", leaf.name, "properties", len(records))
		docs = append(docs, RawDocument{ID: leaf.id, Name: leaf.name, Records: records})
	}
	return docs, nil
}

func parseSectionTable(data []byte, tableOff, numSections int) ([]peSection, error) {
	sections := make([]peSection, 0, numSections)
	for i := 0; i < numSections; i++ {
		off := tableOff + i*40
		if off+40 > len(data) {
			return nil, formatErrf(peContainer, int64(off), "truncated section table entry %d", i)
		}
		vsize, _ := readLE32(data, off+8)
		vaddr, _ := readLE32(data, off+12)
		rsize, _ := readLE32(data, off+16)
		roff, _ := readLE32(data, off+20)
		sections = append(sections, peSection{
			virtualAddr: vaddr,
			virtualSize: vsize,
			rawOffset:   roff,
			rawSize:     rsize,
		})
	}
	return sections, nil
}

// rvaToOffset maps a relative virtual address to a file offset by walking
// the section table.
func rvaToOffset(sections []peSection, rva uint32) (uint32, bool) {
	for _, s := range sections {
		if rva >= s.virtualAddr && rva < s.virtualAddr+s.virtualSize {
			return s.rawOffset + (rva - s.virtualAddr), true
		}
	}
	return 0, false
}

type peWalker struct {
	data     []byte
	base     int
	sections []peSection
	visited  map[uint32]bool
	logger   hclog.Logger
	leaves   []peLeaf
}

func (w *peWalker) piplLeaves() []peLeaf {
	var out []peLeaf
	for _, leaf := range w.leaves {
		if leaf.pipl {
			out = append(out, leaf)
		}
	}
	return out
}

// walkDir walks one resource directory table. Offsets are relative to the
// resource directory base; the high bit of an entry's child offset selects
// subdirectory vs leaf data. A visited-offset set and a depth bound reject
// cyclic and malformed trees.
func (w *peWalker) walkDir(dirOff uint32, depth int, pipl bool, docID int16, docName string) error {
	if w.visited[dirOff] {
		return formatErrf(peContainer, int64(w.base)+int64(dirOff), "cyclic resource directory")
	}
	w.visited[dirOff] = true
	if depth >= maxResourceDepth {
		return formatErrf(peContainer, int64(w.base)+int64(dirOff), "resource directory deeper than %d levels", maxResourceDepth)
	}

	hdr := w.base + int(dirOff)
	numNamed, ok1 := readLE16(w.data, hdr+12)
	numID, ok2 := readLE16(w.data, hdr+14)
	if !ok1 || !ok2 {
		return formatErrf(peContainer, int64(hdr), "truncated resource directory header")
	}

	total := int(numNamed) + int(numID)
	for i := 0; i < total; i++ {
		entry := hdr + 16 + i*8
		nameOrID, ok1 := readLE32(w.data, entry)
		child, ok2 := readLE32(w.data, entry+4)
		if !ok1 || !ok2 {
			return formatErrf(peContainer, int64(entry), "truncated resource directory entry %d", i)
		}

		entryName := ""
		var entryID uint32
		if nameOrID&0x80000000 != 0 {
			entryName = w.readResourceName(nameOrID & 0x7fffffff)
		} else {
			entryID = nameOrID
		}

		levelPipl := pipl
		levelID := docID
		levelName := docName
		switch depth {
		case 0:
			// Type level: the PiPL custom type is identified by name.
			levelPipl = entryName == string(PiPLType[:])
		case 1:
			// Name/id level carries the resource's own identity.
			if entryName != "" {
				levelName = entryName
			} else {
				levelID = int16(entryID)
			}
		}

		if child&0x80000000 != 0 {
			if err := w.walkDir(child&0x7fffffff, depth+1, levelPipl, levelID, levelName); err != nil {
				return err
			}
			continue
		}

		if err := w.readLeaf(child, levelPipl, levelID, levelName); err != nil {
			return err
		}
	}
	return nil
}

func (w *peWalker) readLeaf(dataEntryOff uint32, pipl bool, id int16, name string) error {
	off := w.base + int(dataEntryOff)
	rva, ok1 := readLE32(w.data, off)
	size, ok2 := readLE32(w.data, off+4)
	if !ok1 || !ok2 {
		return formatErrf(peContainer, int64(off), "truncated resource data entry")
	}

	fileOff, ok := rvaToOffset(w.sections, rva)
	if !ok || int(fileOff)+int(size) > len(w.data) {
		return formatErrf(peContainer, int64(rva), "resource data RVA 0x%x size 0x%x outside file", rva, size)
	}

	payload := w.data[fileOff : fileOff+size]
	w.logger.Trace("resource leaf",
		"pipl", pipl,
		"id", id,
		"name", name,
		"size", size,
		"file_offset", fmt.Sprintf("0x%x", fileOff))

	w.leaves = append(w.leaves, peLeaf{pipl: pipl, id: id, name: name, data: payload})
	return nil
}

// readResourceName reads a counted UTF-16LE string from the resource
// directory's string area. Malformed offsets yield an empty name.
func (w *peWalker) readResourceName(strOff uint32) string {
	off := w.base + int(strOff)
	n, ok := readLE16(w.data, off)
	if !ok || off+2+int(n)*2 > len(w.data) {
		return ""
	}
	units := make([]uint16, n)
	for i := 0; i < int(n); i++ {
		units[i], _ = readLE16(w.data, off+2+i*2)
	}
	return string(utf16.Decode(units))
}
