package pipeline

import (
	"context"
	"time"

	"importer/internal/models"
)

// FileJob is one record file to parse, with its position in the batch. The
// index drives ordered commit: files must be committed in consensus order so
// the previous-hash chain can be verified.
type FileJob struct {
	Index int
	Path  string
}

// ParsedFileData is the result of parsing one record file, passed from
// workers to the orderer for sequential commit. Exactly one of File or Err
// is set.
type ParsedFileData struct {
	Index int
	File  *models.RecordFile
	Err   error

	// Processing metrics
	ProcessingTime time.Duration
	WorkerID       int
}

// FileProcessor parses a single record file and persists its transactions.
// Implemented by the importer's Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*models.RecordFile, error)
}

// PipelineConfig contains configuration for the entire pipeline
type PipelineConfig struct {
	Enabled        bool
	WorkerCount    int
	BufferSize     int
	EnableBacklog  int
	DisableBacklog int
}

// PipelineMode represents the current mode of the pipeline
type PipelineMode string

const (
	ModeSequential PipelineMode = "sequential" // Normal mode, no parallelization
	ModeParallel   PipelineMode = "parallel"   // Parallel processing enabled
)
