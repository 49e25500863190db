package pipl

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

const rforkContainer = "resource-fork"

// ResourceForkReader extracts PIPL resources from a native macOS resource
// fork. All fork structures are big-endian.
type ResourceForkReader struct {
	logger hclog.Logger
}

// NewResourceForkReader creates a resource fork reader.
func NewResourceForkReader(logger hclog.Logger) *ResourceForkReader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResourceForkReader{logger: logger}
}

// Extract parses the fork map and returns one RawDocument per PiPL reference
// entry. A fork without a PiPL type yields an empty slice. Buffers whose
// fixed header is inconsistent but which carry legacy 8BIM chunks are routed
// through the legacy chunk scan instead.
func (r *ResourceForkReader) Extract(data []byte) ([]RawDocument, error) {
	if !forkHeaderConsistent(data) {
		if recs := scanLegacyChunks(data, r.logger); len(recs) > 0 {
			r.logger.Debug("inconsistent fork header, using legacy 8BIM chunk scan", "records", len(recs))
			return []RawDocument{{Records: recs}}, nil
		}
		return nil, formatErrf(rforkContainer, 0, "inconsistent fork header")
	}
	return r.parseFork(data)
}

// forkHeaderConsistent checks the 16-byte fixed header: both the data area
// and the resource map must lie fully inside the buffer.
func forkHeaderConsistent(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	dataOff, _ := readBE32(data, 0)
	mapOff, _ := readBE32(data, 4)
	dataLen, _ := readBE32(data, 8)
	mapLen, _ := readBE32(data, 12)
	size := uint64(len(data))
	if dataOff < 16 || mapOff < 16 {
		return false
	}
	if uint64(dataOff)+uint64(dataLen) > size {
		return false
	}
	if uint64(mapOff)+uint64(mapLen) > size || mapLen < 30 {
		return false
	}
	return true
}

func (r *ResourceForkReader) parseFork(data []byte) ([]RawDocument, error) {
	dataOff, _ := readBE32(data, 0)
	mapOff, _ := readBE32(data, 4)

	m := int(mapOff)

	// Map header: 16 reserved bytes, 4-byte handle, 2-byte file ref,
	// 2-byte attributes, then the type list and name list offsets, both
	// relative to the start of the map.
	typeListOff, ok1 := readBE16(data, m+24)
	nameListOff, ok2 := readBE16(data, m+26)
	if !ok1 || !ok2 {
		return nil, formatErrf(rforkContainer, int64(m), "truncated resource map header")
	}

	tl := m + int(typeListOff)
	countField, ok := readBE16(data, tl)
	if !ok {
		return nil, formatErrf(rforkContainer, int64(tl), "type list offset out of range")
	}
	numTypes := int(countField) + 1
	if countField == 0xffff {
		numTypes = 0
	}

	r.logger.Debug("parsed resource map",
		"map_offset", fmt.Sprintf("0x%x", mapOff),
		"type_list_offset", fmt.Sprintf("0x%x", typeListOff),
		"types", numTypes)

	docs := []RawDocument{}
	for i := 0; i < numTypes; i++ {
		entry := tl + 2 + i*8
		if entry+8 > len(data) {
			return nil, formatErrf(rforkContainer, int64(entry), "truncated type list entry %d", i)
		}
		var code [4]byte
		copy(code[:], data[entry:entry+4])
		refCountField, _ := readBE16(data, entry+4)
		refListOff, _ := readBE16(data, entry+6)

		if code != PiPLType {
			r.logger.Trace("skipping resource type", "type", string(code[:]))
			continue
		}

		numRefs := int(refCountField) + 1
		for j := 0; j < numRefs; j++ {
			ref := tl + int(refListOff) + j*12
			if ref+12 > len(data) {
				return nil, formatErrf(rforkContainer, int64(ref), "truncated reference entry %d", j)
			}
			idField, _ := readBE16(data, ref)
			nameOff, _ := readBE16(data, ref+2)
			attrAndOff, _ := readBE32(data, ref+4)
			resourceID := int16(idField)
			// Top byte holds resource attributes, low 24 bits the
			// offset into the data area.
			dataPos := int(dataOff) + int(attrAndOff&0x00ffffff)

			blockLen, ok := readBE32(data, dataPos)
			if !ok {
				return nil, formatErrf(rforkContainer, int64(dataPos), "resource data offset out of range")
			}
			if dataPos+4+int(blockLen) > len(data) {
				return nil, formatErrf(rforkContainer, int64(dataPos), "resource data length 0x%x out of range", blockLen)
			}
			block := data[dataPos+4 : dataPos+4+int(blockLen)]

			records, err := parsePropertyArray(block, rforkContainer, int64(dataPos+4))
			if err != nil {
				return nil, err
			}

			name := ""
			if nameOff != 0xffff {
				name = readPascalString(data, m+int(nameListOff)+int(nameOff))
			}

			r.logger.Debug("found PiPL resource",
				"id", resourceID,
				"name", name,
				"properties", len(records),
				"data_offset", fmt.Sprintf("0x%x", dataPos))

			docs = append(docs, RawDocument{ID: resourceID, Name: name, Records: records})
		}
	}
	return docs, nil
}

// readPascalString reads a length-prefixed name from the map's name area.
// Out-of-range offsets yield an empty name rather than an error: the name is
// optional identity, not structure.
func readPascalString(data []byte, off int) string {
	if off < 0 || off >= len(data) {
		return ""
	}
	n := int(data[off])
	if off+1+n > len(data) {
		return ""
	}
	return macRoman(data[off+1 : off+1+n])
}

// parsePropertyArray parses the PIPL property array shared by all binary
// containers: a 16-bit property count, then per property a 4-byte tag, a
// 4-byte sub-id, a 4-byte length, and length payload bytes padded to an even
// boundary. Integers are big-endian regardless of the outer container.
func parsePropertyArray(data []byte, container string, base int64) ([]RawPropertyRecord, error) {
	count, ok := readBE16(data, 0)
	if !ok {
		return nil, formatErrf(container, base, "property array too short for count")
	}
	records := make([]RawPropertyRecord, 0, count)
	pos := 2
	for i := 0; i < int(count); i++ {
		if pos+12 > len(data) {
			return nil, formatErrf(container, base+int64(pos), "truncated property header %d of %d", i+1, count)
		}
		var tag [4]byte
		copy(tag[:], data[pos:pos+4])
		length, _ := readBE32(data, pos+8)
		start := pos + 12
		if start+int(length) > len(data) {
			return nil, formatErrf(container, base+int64(pos), "property %q length 0x%x out of range", string(tag[:]), length)
		}
		payload := make([]byte, length)
		copy(payload, data[start:start+int(length)])
		records = append(records, RawPropertyRecord{Tag: tag, Length: length, Data: payload})

		pos = start + int(length)
		if length%2 == 1 {
			pos++ // payloads are padded to even length
		}
	}
	return records, nil
}

// looksLikePropertyArray reports whether data plausibly begins with a PIPL
// property array header: a small big-endian count followed by a printable
// 4-character tag. Used by the PE reader's fallback scan.
func looksLikePropertyArray(data []byte) bool {
	count, ok := readBE16(data, 0)
	if !ok || count == 0 || count > 512 {
		return false
	}
	if len(data) < 14 {
		return false
	}
	for _, b := range data[2:6] {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	length, _ := readBE32(data, 10)
	return 12+int(length) <= len(data)
}

// macRoman decodes legacy Mac-compatible text bytes. ASCII passes through;
// high bytes are mapped one-to-one so no input ever fails to decode.
func macRoman(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
