package pipeline

import (
	"context"
	"log/slog"

	"importer/internal/metrics"
	"importer/internal/storage"
)

// Orderer receives parsed file results and commits them in strict file
// order. Even though workers parse files in parallel, the previous-hash
// chain can only be verified sequentially, and the record file rows must be
// committed in the same order so a restart resumes from a consistent point.
type Orderer struct {
	repository storage.Repository

	// State tracking
	nextExpected int                      // Next batch index we expect to commit
	prevHash     string                   // File hash the next file must link to
	pending      map[int]*ParsedFileData  // Buffered out-of-order results
	lastFile     *ParsedFileData
}

// NewOrderer creates a new orderer for sequential commits. prevHash is the
// hash of the last file committed before this batch ("" accepts any link).
func NewOrderer(repository storage.Repository, prevHash string) *Orderer {
	return &Orderer{
		repository:   repository,
		prevHash:     prevHash,
		nextExpected: 0,
		pending:      make(map[int]*ParsedFileData),
	}
}

// ProcessResult buffers a worker result and commits every consecutive file
// starting from the next expected index. Returns the first error in batch
// order; results beyond a failed file are never committed.
func (o *Orderer) ProcessResult(ctx context.Context, result *ParsedFileData) error {
	o.pending[result.Index] = result

	slog.Debug("Orderer received result",
		"index", result.Index,
		"worker_id", result.WorkerID,
		"pending_count", len(o.pending),
		"next_expected", o.nextExpected,
	)

	for {
		data, exists := o.pending[o.nextExpected]
		if !exists {
			// Next expected file hasn't been parsed yet
			break
		}

		if data.Err != nil {
			return data.Err
		}

		if err := o.commit(ctx, data); err != nil {
			slog.Error("Orderer: Failed to commit record file in order",
				"index", data.Index,
				"name", data.File.Name,
				"error", err,
			)
			return err
		}

		delete(o.pending, o.nextExpected)
		o.nextExpected++
	}

	metrics.PipelineQueueDepth.Set(float64(len(o.pending)))

	return nil
}

// commit verifies the chain link and saves one record file
func (o *Orderer) commit(ctx context.Context, data *ParsedFileData) error {
	if err := data.File.VerifyPrevious(o.prevHash); err != nil {
		metrics.HashMismatches.Inc()
		return err
	}

	if err := o.repository.SaveRecordFile(ctx, data.File); err != nil {
		return err
	}

	o.prevHash = data.File.FileHash
	o.lastFile = data

	metrics.RecordFilesImported.Inc()
	metrics.LastConsensusEnd.Set(float64(data.File.ConsensusEnd))

	slog.Debug("Orderer committed record file",
		"name", data.File.Name,
		"count", data.File.Count,
		"worker_id", data.WorkerID,
		"processing_time_ms", data.ProcessingTime.Milliseconds(),
	)

	return nil
}

// LastCommitted returns the most recently committed result, or nil
func (o *Orderer) LastCommitted() *ParsedFileData {
	return o.lastFile
}

// GetPendingCount returns the number of parsed files waiting to be committed
func (o *Orderer) GetPendingCount() int {
	return len(o.pending)
}
