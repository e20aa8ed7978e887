package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"importer/internal/metrics"
	"importer/internal/models"
	"importer/internal/reader"
	"importer/internal/retry"
	"importer/internal/storage"

	"github.com/klauspost/compress/gzip"
)

// txBatchSize bounds how many transactions are buffered before a batch insert
const txBatchSize = 500

// Processor handles the import of a single record file: parse and verify the
// digest, stream transactions into storage, and commit the file metadata
// once the hash chain link checks out.
type Processor struct {
	repository storage.Repository
	strategy   retry.Strategy
}

// NewProcessor creates a new Processor instance
func NewProcessor(repository storage.Repository, strategy retry.Strategy) *Processor {
	return &Processor{
		repository: repository,
		strategy:   strategy,
	}
}

// ProcessFile parses one record file and persists its transactions. The
// record file row itself is not saved here; callers commit it after the
// chain link has been verified. Source-class failures are retried per the
// configured strategy; parse failures are not.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*models.RecordFile, error) {
	var rf *models.RecordFile

	operation := func() error {
		parsed, err := p.parse(ctx, path)
		if err != nil {
			return err
		}
		rf = parsed
		return nil
	}

	if err := p.strategy.Execute(ctx, operation); err != nil {
		metrics.ParseErrors.WithLabelValues(errorClass(err)).Inc()
		return nil, err
	}
	return rf, nil
}

// Process imports one record file sequentially: parse, verify the chain link
// against the previous file's hash, commit the file metadata
func (p *Processor) Process(ctx context.Context, path string, prevHash string) (*models.RecordFile, error) {
	rf, err := p.ProcessFile(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := rf.VerifyPrevious(prevHash); err != nil {
		metrics.HashMismatches.Inc()
		return nil, err
	}

	if err := p.repository.SaveRecordFile(ctx, rf); err != nil {
		return nil, err
	}

	metrics.RecordFilesImported.Inc()
	metrics.LastConsensusEnd.Set(float64(rf.ConsensusEnd))

	return rf, nil
}

// parse runs the versioned reader over the file, flushing transactions to
// storage in batches as they stream by. Transaction inserts are idempotent
// (conflict on consensus timestamp is a no-op), so a retried or re-imported
// file does not duplicate rows.
func (p *Processor) parse(ctx context.Context, path string) (*models.RecordFile, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var src io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", name, err)
		}
		defer gz.Close()
		src = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	batch := make([]*models.Transaction, 0, txBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.repository.SaveTransactions(ctx, batch); err != nil {
			return err
		}
		metrics.TransactionsImported.Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	rf, err := reader.Read(reader.NewSource(name, src), func(item *models.RecordItem) error {
		ts, err := item.ConsensusTimestamp()
		if err != nil {
			return err
		}
		batch = append(batch, &models.Transaction{
			ConsensusNs:      ts,
			FileName:         name,
			TransactionBytes: item.TransactionBytes,
			RecordBytes:      item.RecordBytes,
		})
		if len(batch) >= txBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	rf.ProcessedAt = time.Now().UTC()
	rf.ProcessingDuration = time.Since(start).Milliseconds()
	metrics.RecordFileParseDuration.Observe(time.Since(start).Seconds())

	slog.Debug("Record file parsed",
		"name", name,
		"version", rf.Version,
		"count", rf.Count,
		"hash", rf.FileHash,
		"parse_ms", rf.ProcessingDuration,
	)

	return rf, nil
}

// errorClass maps a parse failure to its metrics label
func errorClass(err error) string {
	var formatErr *reader.FormatError
	var versionErr *reader.UnsupportedVersionError
	var sourceErr *reader.SourceError
	var internalErr *reader.InternalError

	switch {
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &versionErr):
		return "unsupported_version"
	case errors.As(err, &sourceErr):
		return "source"
	case errors.As(err, &internalErr):
		return "internal"
	default:
		return "other"
	}
}
