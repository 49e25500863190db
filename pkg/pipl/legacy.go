package pipl

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// legacyChunkSig marks properties in the legacy flat container variant:
// '8BIM', a 4-byte tag, four zero bytes, a big-endian length, then payload.
var legacyChunkSig = []byte("8BIM")

// scanLegacyChunks walks a buffer for 8BIM-tagged chunks and emits one raw
// record per chunk with a registered tag. The scan is byte-by-byte and never
// fails; unrecognized bytes are skipped.
func scanLegacyChunks(data []byte, logger hclog.Logger) []RawPropertyRecord {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var records []RawPropertyRecord
	off := 0
	for off+16 <= len(data) {
		if !bytes.Equal(data[off:off+4], legacyChunkSig) {
			off++
			continue
		}

		var tag [4]byte
		copy(tag[:], data[off+4:off+8])
		if !isZero(data[off+8 : off+12]) {
			off++
			continue
		}
		length, _ := readBE32(data, off+12)
		start := off + 16
		if start+int(length) > len(data) {
			off++
			continue
		}

		if _, ok := LookupTag(tag); !ok {
			// Unknown chunk tags in the legacy variant are scan noise,
			// not properties.
			off = start + int(length)
			continue
		}

		payload := make([]byte, length)
		copy(payload, data[start:start+int(length)])
		records = append(records, RawPropertyRecord{Tag: tag, Length: length, Data: payload})

		logger.Trace("legacy chunk",
			"tag", string(tag[:]),
			"length", length,
			"offset", fmt.Sprintf("0x%x", off))

		off = start + int(length)
		if length%2 == 1 {
			off++
		}
	}
	return records
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
