package pipeline

import (
	"context"
	"time"
)

// Worker parses record files in parallel. Readers hold no shared mutable
// state, so workers need no synchronization beyond the job channel.
type Worker struct {
	id        int
	processor FileProcessor
}

// NewWorker creates a new pipeline worker
func NewWorker(id int, processor FileProcessor) *Worker {
	return &Worker{
		id:        id,
		processor: processor,
	}
}

// ProcessFile parses one record file and wraps the outcome for the orderer.
// A parse failure is carried in the result rather than returned, so the
// orderer can stop the batch at the exact failing position.
func (w *Worker) ProcessFile(ctx context.Context, job FileJob) *ParsedFileData {
	start := time.Now()

	rf, err := w.processor.ProcessFile(ctx, job.Path)

	return &ParsedFileData{
		Index:          job.Index,
		File:           rf,
		Err:            err,
		ProcessingTime: time.Since(start),
		WorkerID:       w.id,
	}
}
