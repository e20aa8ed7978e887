package reader

import "fmt"

// FormatError indicates the stream content does not match the record file
// format: a marker or version field mismatch, an out-of-bounds blob length,
// or a stream that ends before an expected field is complete. Re-reading the
// same bytes will fail the same way; recovery requires re-fetching the file.
type FormatError struct {
	File  string
	Field string
	Msg   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("record file %s: invalid %s: %s", e.File, e.Field, e.Msg)
}

// UnsupportedVersionError indicates the leading version tag of a stream has
// no registered reader. Not recoverable without a software update.
type UnsupportedVersionError struct {
	File    string
	Version int32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("record file %s: unsupported record file version %d", e.File, e.Version)
}

// SourceError wraps a failure of the underlying byte source. The stream
// content itself may be fine; the caller may retry with a fresh source.
type SourceError struct {
	File string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("record file %s: source failure: %v", e.File, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// InternalError signals incorrect use of the reader itself, such as updating
// a digest after it has been sealed. It is never caused by stream content.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "reader internal error: " + e.Msg
}
