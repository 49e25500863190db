// Package detect decides which container format an input file holds so the
// right reader can be selected. Extension wins when it is conclusive; content
// sniffing is the fallback for bare or misnamed files.
package detect

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/aetools/aepipl/pkg/pipl"
)

// ErrUnknownFormat is returned when neither the extension nor the content
// identifies a supported container.
var ErrUnknownFormat = errors.New("unrecognized input format")

// sniffLen bounds how much of the file content the sniffer examines.
const sniffLen = 1024

// ByExtension maps a file extension to its container type.
func ByExtension(path string) (pipl.ContainerType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rsrc":
		return pipl.ContainerResourceFork, true
	case ".aex", ".dll", ".exe":
		return pipl.ContainerPE, true
	case ".r", ".rcp":
		return pipl.ContainerScript, true
	}
	return 0, false
}

// ByContent sniffs the leading bytes of a file for a container signature.
func ByContent(data []byte) (pipl.ContainerType, bool) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) >= 2 && head[0] == 'M' && head[1] == 'Z' {
		return pipl.ContainerPE, true
	}
	if bytes.Contains(head, []byte("resource")) && bytes.Contains(head, []byte("'PiPL'")) {
		return pipl.ContainerScript, true
	}
	if bytes.Contains(head, []byte("8BIM")) || forkHeaderPlausible(data) {
		return pipl.ContainerResourceFork, true
	}
	return 0, false
}

// Detect resolves the container type for path, preferring the extension and
// falling back to content sniffing.
func Detect(path string, data []byte, logger hclog.Logger) (pipl.ContainerType, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if ct, ok := ByExtension(path); ok {
		logger.Debug("detected container by extension", "path", path, "container", ct.String())
		return ct, nil
	}
	if ct, ok := ByContent(data); ok {
		logger.Debug("detected container by content", "path", path, "container", ct.String())
		return ct, nil
	}
	return 0, ErrUnknownFormat
}

// forkHeaderPlausible checks whether the fixed 16-byte fork header points at
// ranges inside the buffer.
func forkHeaderPlausible(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	dataOff := uint64(data[0])<<24 | uint64(data[1])<<16 | uint64(data[2])<<8 | uint64(data[3])
	mapOff := uint64(data[4])<<24 | uint64(data[5])<<16 | uint64(data[6])<<8 | uint64(data[7])
	size := uint64(len(data))
	return dataOff >= 16 && mapOff >= 16 && dataOff < size && mapOff < size
}
