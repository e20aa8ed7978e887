package reader

import (
	"encoding/binary"
	"fmt"
)

// validateByte checks that a marker byte read from the stream matches the
// expected value
func validateByte(expected, actual byte, file, field string) error {
	if expected != actual {
		return &FormatError{
			File:  file,
			Field: field,
			Msg:   fmt.Sprintf("expected 0x%02x, got 0x%02x", expected, actual),
		}
	}
	return nil
}

// validateInt32 checks that an integer field read from the stream matches the
// expected value
func validateInt32(expected, actual int32, file, field string) error {
	if expected != actual {
		return &FormatError{
			File:  file,
			Field: field,
			Msg:   fmt.Sprintf("expected %d, got %d", expected, actual),
		}
	}
	return nil
}

// validateLength checks that a declared blob length is within [min, max]
func validateLength(length, min, max int32, file, field string) error {
	if length < min || length > max {
		return &FormatError{
			File:  file,
			Field: field,
			Msg:   fmt.Sprintf("length %d outside [%d, %d]", length, min, max),
		}
	}
	return nil
}

// int32Bytes returns the 4-byte big-endian encoding of v, the form in which
// integer fields are fed to the file digest
func int32Bytes(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}
