package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"importer/internal/metrics"
	"importer/internal/pipeline"
	"importer/internal/storage"
)

// Streamer continuously scans the data directory for new record files and
// imports them in consensus order
type Streamer struct {
	dataDir       string
	pollInterval  time.Duration
	bootstrapHash string

	processor  *Processor
	repository storage.Repository
	pipeline   *pipeline.Pipeline
}

// NewStreamer creates a new Streamer instance. The pipeline is optional; when
// nil all files are imported sequentially.
func NewStreamer(dataDir string, pollInterval time.Duration, bootstrapHash string, processor *Processor, repository storage.Repository, pl *pipeline.Pipeline) *Streamer {
	return &Streamer{
		dataDir:       dataDir,
		pollInterval:  pollInterval,
		bootstrapHash: bootstrapHash,
		processor:     processor,
		repository:    repository,
		pipeline:      pl,
	}
}

// Start begins the import loop. It blocks until the context is cancelled or
// an import fails; restarting resumes from the last committed record file.
func (s *Streamer) Start(ctx context.Context) error {
	lastName := ""
	lastHash := s.bootstrapHash

	latest, err := s.repository.GetLatestRecordFile(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		lastName = latest.Name
		lastHash = latest.FileHash
		slog.Info("Resuming from last imported record file",
			"name", lastName,
			"hash", lastHash,
		)
	}

	slog.Info("Starting record stream streamer",
		"data_dir", s.dataDir,
		"poll_interval", s.pollInterval,
	)

	imported := 0

	// Main import loop
	for {
		select {
		case <-ctx.Done():
			slog.Warn("Context cancelled, stopping streamer")
			return ctx.Err()
		default:
		}

		pending, err := s.pendingFiles(lastName)
		if err != nil {
			return err
		}
		metrics.FileBacklog.Set(float64(len(pending)))

		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				slog.Warn("Context cancelled, stopping streamer")
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
			continue
		}

		// Catch-up mode: hand the whole backlog to the parallel pipeline
		if s.pipeline != nil && s.pipeline.ShouldEnableParallel(len(pending)) {
			last, err := s.pipeline.ImportBatch(ctx, pending, lastHash)
			if last != nil {
				lastName = last.Name
				lastHash = last.FileHash
			}
			if err != nil {
				return err
			}
			continue
		}

		for _, path := range pending {
			select {
			case <-ctx.Done():
				slog.Warn("Context cancelled, stopping streamer")
				return ctx.Err()
			default:
			}

			startTime := time.Now()
			rf, err := s.processor.Process(ctx, path, lastHash)
			if err != nil {
				slog.Error("Failed to import record file", "path", path, "error", err)
				return err
			}

			lastName = rf.Name
			lastHash = rf.FileHash
			imported++

			// Log timing info every 10 files in INFO, always in DEBUG
			if imported%10 == 0 {
				slog.Info("Record file imported",
					"name", rf.Name,
					"count", rf.Count,
					"total_ms", time.Since(startTime).Milliseconds(),
				)
			} else {
				slog.Debug("Record file imported",
					"name", rf.Name,
					"count", rf.Count,
					"total_ms", time.Since(startTime).Milliseconds(),
				)
			}
		}
	}
}

// pendingFiles lists record files in the data directory that sort after the
// last imported file. File names encode the consensus time of their first
// transaction, so lexicographic order is consensus order.
func (s *Streamer) pendingFiles(lastName string) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", s.dataDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".rcd") && !strings.HasSuffix(name, ".rcd.gz") {
			continue
		}
		if lastName != "" && strings.TrimSuffix(name, ".gz") <= lastName {
			continue
		}
		files = append(files, filepath.Join(s.dataDir, name))
	}

	sort.Strings(files)
	return files, nil
}
