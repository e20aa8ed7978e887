package models

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers needed to locate the consensus timestamp inside a
// serialized transaction record without a full decode
const (
	consensusTimestampFieldNum = 3
	timestampSecondsFieldNum   = 1
	timestampNanosFieldNum     = 2
)

// RecordItem is a single transaction and its result record, both kept as the
// raw bytes read from the stream. Semantic decoding is the consumer's concern;
// the importer only needs the consensus timestamp.
type RecordItem struct {
	TransactionBytes []byte
	RecordBytes      []byte
}

// ConsensusTimestamp extracts the consensus timestamp from the record bytes
// and returns it as nanoseconds since the epoch. Only the timestamp field is
// decoded; the rest of the record is skipped over on the wire level.
func (r *RecordItem) ConsensusTimestamp() (int64, error) {
	b := r.RecordBytes
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, fmt.Errorf("failed to parse record field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == consensusTimestampFieldNum && typ == protowire.BytesType {
			ts, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, fmt.Errorf("failed to parse consensus timestamp: %w", protowire.ParseError(n))
			}
			return decodeTimestamp(ts)
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, fmt.Errorf("failed to skip record field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return 0, fmt.Errorf("record contains no consensus timestamp")
}

// decodeTimestamp decodes a serialized Timestamp message (seconds + nanos)
// into a single nanosecond value
func decodeTimestamp(b []byte) (int64, error) {
	var seconds, nanos int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, fmt.Errorf("failed to parse timestamp field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.VarintType && (num == timestampSecondsFieldNum || num == timestampNanosFieldNum) {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, fmt.Errorf("failed to parse timestamp field %d: %w", num, protowire.ParseError(n))
			}
			if num == timestampSecondsFieldNum {
				seconds = int64(v)
			} else {
				nanos = int64(v)
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return 0, fmt.Errorf("failed to skip timestamp field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return seconds*int64(1e9) + nanos, nil
}
