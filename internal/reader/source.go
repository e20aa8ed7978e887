package reader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// Source wraps a record file byte stream with buffered, exact-count reads.
// The name is carried for error messages and the resulting RecordFile only;
// no assumption is made about where the bytes come from.
type Source struct {
	name string
	br   *bufio.Reader
	read int64
}

// NewSource creates a Source over r. The reader is consumed sequentially and
// is not reusable after a read attempt, successful or not.
func NewSource(name string, r io.Reader) *Source {
	return &Source{name: name, br: bufio.NewReader(r)}
}

// Name returns the logical name of the stream
func (s *Source) Name() string { return s.name }

// BytesRead returns the number of bytes consumed so far
func (s *Source) BytesRead() int64 { return s.read }

// HasMore reports whether at least one more byte is available
func (s *Source) HasMore() (bool, error) {
	if _, err := s.br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, &SourceError{File: s.name, Err: err}
	}
	return true, nil
}

// PeekVersion reads the leading 4-byte version tag without consuming it, so
// the selected reader still sees the tag as part of its header.
func (s *Source) PeekVersion() (int32, error) {
	b, err := s.br.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, &FormatError{File: s.name, Field: "record file version", Msg: "stream shorter than version tag"}
		}
		return 0, &SourceError{File: s.name, Err: err}
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadByte reads a single byte. The field name is used for error context.
func (s *Source) ReadByte(field string) (byte, error) {
	b, err := s.br.ReadByte()
	if err != nil {
		return 0, s.readErr(err, field)
	}
	s.read++
	return b, nil
}

// ReadInt32 reads a 4-byte big-endian integer
func (s *Source) ReadInt32(field string) (int32, error) {
	var buf [4]byte
	n, err := io.ReadFull(s.br, buf[:])
	s.read += int64(n)
	if err != nil {
		return 0, s.readErr(err, field)
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadBytes reads exactly n bytes
func (s *Source) ReadBytes(n int, field string) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(s.br, buf)
	s.read += int64(read)
	if err != nil {
		return nil, s.readErr(err, field)
	}
	return buf, nil
}

// readErr classifies a read failure: running out of bytes mid-field means the
// file is truncated, anything else is a failure of the source itself
func (s *Source) readErr(err error, field string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FormatError{File: s.name, Field: field, Msg: "unexpected end of stream"}
	}
	return &SourceError{File: s.name, Err: err}
}
