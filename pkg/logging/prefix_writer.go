package logging

import (
	"bytes"
	"io"
)

// PrefixWriter decorates every complete log line with a fixed prefix before
// passing it on. Partial writes are buffered until their newline arrives, so
// a line assembled over several Write calls is prefixed exactly once.
type PrefixWriter struct {
	prefix []byte
	out    io.Writer
	pend   bytes.Buffer
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: []byte(prefix), out: w}
}

// Write implements io.Writer.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.pend.Write(p)

	for {
		data := pw.pend.Bytes()
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			return len(p), nil
		}
		if _, err := pw.out.Write(pw.prefix); err != nil {
			return len(p), err
		}
		if _, err := pw.out.Write(data[:nl+1]); err != nil {
			return len(p), err
		}
		pw.pend.Next(nl + 1)
	}
}
