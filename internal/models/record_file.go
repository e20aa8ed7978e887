package models

import (
	"fmt"
	"time"
)

// RecordFile represents the metadata of a single record stream file
type RecordFile struct {
	Name            string `json:"name"`
	Version         int32  `json:"version"`
	HapiVersion     int32  `json:"hapi_version"`
	PreviousHash    string `json:"previous_hash"`
	FileHash        string `json:"file_hash"`
	DigestAlgorithm string `json:"digest_algorithm"`
	Count           int64  `json:"count"`
	ConsensusStart  int64  `json:"consensus_start"`
	ConsensusEnd    int64  `json:"consensus_end"`
	Bytes           int64  `json:"bytes,omitempty"`

	// Processing metadata
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration int64     `json:"processing_duration_ms"`
}

// VerifyPrevious checks that this file links to the given previous file
// hash. An empty expected hash accepts any link (bootstrap case).
func (f *RecordFile) VerifyPrevious(prevHash string) error {
	if prevHash == "" || f.PreviousHash == prevHash {
		return nil
	}
	return fmt.Errorf("record file %s: previous hash %s does not match chain hash %s", f.Name, f.PreviousHash, prevHash)
}
