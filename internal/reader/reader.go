// Package reader implements the versioned record stream file readers and the
// digest chain that verifies file integrity. A record file is a header
// (format version, HAPI version, previous file hash) followed by
// transaction/record byte pairs ordered by consensus timestamp. The reader
// reproduces the exact rolling digest the origin nodes computed, so any
// corruption or truncation is detected before the data is trusted.
package reader

import (
	"importer/internal/models"
)

// MaxTransactionLength bounds the declared size of a transaction or record
// blob. Matches the limit enforced by the origin nodes.
const MaxTransactionLength = 64 * 1024

// ItemFunc is invoked for every item in file order, on the calling goroutine.
// Items are not retained by the reader after the callback returns. Returning
// an error aborts the read.
type ItemFunc func(item *models.RecordItem) error

// RecordFileReader reads one version of the record stream file format
type RecordFileReader interface {
	// Version returns the file format version this reader supports
	Version() int32

	// Read consumes the entire source, delivers items to onItem (which may be
	// nil) and returns the finalized record file with its computed hash. On
	// any error no record file is returned; the source is left in an
	// undefined position.
	Read(src *Source, onItem ItemFunc) (*models.RecordFile, error)
}

// registry of supported format versions. Fixed at startup; version 1 and 2
// share the pre-v5 layout and differ in the digest strategy.
var readers = map[int32]RecordFileReader{
	1: newPreV5Reader(1, NewV1Digest),
	2: newPreV5Reader(2, NewV2Digest),
}

// Read peeks the leading version tag of the source, selects the reader
// registered for it and reads the whole file through it. The tag is not
// consumed by the peek; the selected reader re-validates it as part of the
// header.
func Read(src *Source, onItem ItemFunc) (*models.RecordFile, error) {
	version, err := src.PeekVersion()
	if err != nil {
		return nil, err
	}

	r, ok := readers[version]
	if !ok {
		return nil, &UnsupportedVersionError{File: src.Name(), Version: version}
	}

	return r.Read(src, onItem)
}
