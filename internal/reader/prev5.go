package reader

import (
	"encoding/hex"

	"importer/internal/models"
)

// Structural marker bytes of the pre-v5 layout
const (
	prevHashMarker byte = 1
	recordMarker   byte = 2
)

// preV5Reader reads the pre-v5 record stream layout: a fixed header carrying
// the file version, HAPI version and previous file hash, followed by marker
// delimited transaction/record pairs. Format versions 1 and 2 share the
// layout and differ only in how the file hash is computed, so each instance
// pairs a version tag with a digest strategy.
type preV5Reader struct {
	version   int32
	newDigest func() FileDigest
}

func newPreV5Reader(version int32, newDigest func() FileDigest) *preV5Reader {
	return &preV5Reader{version: version, newDigest: newDigest}
}

func (r *preV5Reader) Version() int32 { return r.version }

func (r *preV5Reader) Read(src *Source, onItem ItemFunc) (*models.RecordFile, error) {
	rf := &models.RecordFile{
		Name:            src.Name(),
		DigestAlgorithm: DigestAlgorithm,
	}
	digest := r.newDigest()

	if err := r.readHeader(src, digest, rf); err != nil {
		return nil, err
	}
	if err := r.readBody(src, digest, onItem, rf); err != nil {
		return nil, err
	}

	// Seal only after the whole body was consumed without error
	sum, err := digest.Digest()
	if err != nil {
		return nil, err
	}
	rf.FileHash = hex.EncodeToString(sum)
	rf.Bytes = src.BytesRead()

	return rf, nil
}

// readHeader consumes the fixed-format header and feeds every consumed byte,
// in read order, into the header digest channel. Integer fields are digested
// in their 4-byte big-endian form, exactly as the origin computed them.
func (r *preV5Reader) readHeader(src *Source, digest FileDigest, rf *models.RecordFile) error {
	version, err := src.ReadInt32("record file version")
	if err != nil {
		return err
	}
	if err := validateInt32(r.version, version, src.Name(), "record file version"); err != nil {
		return err
	}

	hapiVersion, err := src.ReadInt32("hapi version")
	if err != nil {
		return err
	}

	marker, err := src.ReadByte("previous hash marker")
	if err != nil {
		return err
	}
	if err := validateByte(prevHashMarker, marker, src.Name(), "previous hash marker"); err != nil {
		return err
	}

	prevHash, err := src.ReadBytes(DigestSize, "previous hash")
	if err != nil {
		return err
	}

	if err := digest.UpdateHeader(int32Bytes(version)); err != nil {
		return err
	}
	if err := digest.UpdateHeader(int32Bytes(hapiVersion)); err != nil {
		return err
	}
	if err := digest.UpdateHeader([]byte{marker}); err != nil {
		return err
	}
	if err := digest.UpdateHeader(prevHash); err != nil {
		return err
	}

	rf.Version = version
	rf.HapiVersion = hapiVersion
	rf.PreviousHash = hex.EncodeToString(prevHash)
	return nil
}

// readBody consumes marker delimited transaction/record pairs until the
// source is exhausted. Each item is delivered to onItem before the next one
// is read; nothing is buffered. A body with zero items is legal and leaves
// the consensus timestamps at zero.
func (r *preV5Reader) readBody(src *Source, digest FileDigest, onItem ItemFunc, rf *models.RecordFile) error {
	var (
		count          int64
		consensusStart int64
		consensusEnd   int64
	)

	for {
		more, err := src.HasMore()
		if err != nil {
			return err
		}
		if !more {
			break
		}

		marker, err := src.ReadByte("record marker")
		if err != nil {
			return err
		}
		if err := validateByte(recordMarker, marker, src.Name(), "record marker"); err != nil {
			return err
		}

		txBytes, err := r.readLengthAndBytes(src, "transaction bytes")
		if err != nil {
			return err
		}
		recBytes, err := r.readLengthAndBytes(src, "record bytes")
		if err != nil {
			return err
		}

		if err := digest.UpdateBody([]byte{marker}); err != nil {
			return err
		}
		if err := digest.UpdateBody(int32Bytes(int32(len(txBytes)))); err != nil {
			return err
		}
		if err := digest.UpdateBody(txBytes); err != nil {
			return err
		}
		if err := digest.UpdateBody(int32Bytes(int32(len(recBytes)))); err != nil {
			return err
		}
		if err := digest.UpdateBody(recBytes); err != nil {
			return err
		}

		item := &models.RecordItem{TransactionBytes: txBytes, RecordBytes: recBytes}

		ts, err := item.ConsensusTimestamp()
		if err != nil {
			return &FormatError{File: src.Name(), Field: "record bytes", Msg: err.Error()}
		}
		if count == 0 {
			consensusStart = ts
		}
		consensusEnd = ts

		if onItem != nil {
			if err := onItem(item); err != nil {
				return err
			}
		}

		count++
	}

	rf.Count = count
	rf.ConsensusStart = consensusStart
	rf.ConsensusEnd = consensusEnd
	return nil
}

// readLengthAndBytes reads a 4-byte big-endian length prefix, validates it
// against [1, MaxTransactionLength] and reads exactly that many bytes
func (r *preV5Reader) readLengthAndBytes(src *Source, field string) ([]byte, error) {
	length, err := src.ReadInt32(field + " length")
	if err != nil {
		return nil, err
	}
	if err := validateLength(length, 1, MaxTransactionLength, src.Name(), field+" length"); err != nil {
		return nil, err
	}
	return src.ReadBytes(int(length), field)
}
