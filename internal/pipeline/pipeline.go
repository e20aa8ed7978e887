package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"importer/internal/metrics"
	"importer/internal/models"
	"importer/internal/storage"
)

// Pipeline manages parallel record file parsing with auto-enable based on
// the file backlog
type Pipeline struct {
	config     PipelineConfig
	repository storage.Repository
	processor  FileProcessor

	// State
	mu          sync.Mutex
	currentMode PipelineMode
}

// NewPipeline creates a new pipeline instance
func NewPipeline(config PipelineConfig, repository storage.Repository, processor FileProcessor) *Pipeline {
	return &Pipeline{
		config:      config,
		repository:  repository,
		processor:   processor,
		currentMode: ModeSequential,
	}
}

// ShouldEnableParallel determines if parallel mode should be used for the
// current backlog. The enable and disable thresholds differ so the mode
// doesn't flap around a single value.
func (p *Pipeline) ShouldEnableParallel(backlog int) bool {
	if !p.config.Enabled {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.currentMode {
	case ModeParallel:
		if backlog < p.config.DisableBacklog {
			slog.Info("🔄 Pipeline auto-disabling: caught up with stream",
				"backlog", backlog,
				"threshold", p.config.DisableBacklog,
			)
			p.currentMode = ModeSequential
			metrics.PipelineMode.Set(0)
			return false
		}
		return true
	default:
		if backlog > p.config.EnableBacklog {
			slog.Info("🚀 Pipeline auto-enabling: catching up",
				"backlog", backlog,
				"threshold", p.config.EnableBacklog,
			)
			p.currentMode = ModeParallel
			metrics.PipelineMode.Set(1)
			return true
		}
		return false
	}
}

// GetMode returns the current pipeline mode
func (p *Pipeline) GetMode() PipelineMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentMode
}

// ImportBatch parses the given files with a worker pool and commits them in
// strict file order through the orderer. Returns the last committed record
// file (nil when nothing was committed) and the first error in batch order;
// files past a failure are never committed.
func (p *Pipeline) ImportBatch(ctx context.Context, paths []string, prevHash string) (*models.RecordFile, error) {
	workerCount := p.config.WorkerCount
	if workerCount == 0 {
		cpuCores := runtime.NumCPU()
		workerCount = int(float64(cpuCores) * 0.75) // Use 75% of cores
		if workerCount < 2 {
			workerCount = 2
		}
	}
	if workerCount > len(paths) {
		workerCount = len(paths)
	}

	bufferSize := p.config.BufferSize
	if bufferSize <= 0 {
		bufferSize = workerCount
	}

	slog.Info("🚀 Starting parallel import batch",
		"files", len(paths),
		"worker_count", workerCount,
		"buffer_size", bufferSize,
		"cpu_cores", runtime.NumCPU(),
	)

	metrics.PipelineWorkerCount.Set(float64(workerCount))
	defer metrics.PipelineWorkerCount.Set(0)
	defer metrics.PipelineQueueDepth.Set(0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobChan := make(chan FileJob, bufferSize)
	resultsChan := make(chan *ParsedFileData, bufferSize)

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		worker := NewWorker(i, p.processor)
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			for job := range jobChan {
				result := w.ProcessFile(ctx, job)
				select {
				case resultsChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}(worker)
	}

	// Feed jobs
	go func() {
		defer close(jobChan)
		for i, path := range paths {
			select {
			case jobChan <- FileJob{Index: i, Path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Commit results in batch order
	orderer := NewOrderer(p.repository, prevHash)
	var batchErr error
	for result := range resultsChan {
		if batchErr != nil {
			continue // drain remaining results after a failure
		}
		if err := orderer.ProcessResult(ctx, result); err != nil {
			batchErr = err
			cancel()
		}
	}

	var last *models.RecordFile
	if committed := orderer.LastCommitted(); committed != nil {
		last = committed.File
	}

	if batchErr != nil {
		return last, batchErr
	}
	if err := ctx.Err(); err != nil {
		return last, err
	}

	slog.Info("Parallel import batch complete", "files", len(paths))
	return last, nil
}
