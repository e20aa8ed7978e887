package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"importer/internal/metrics"
	"importer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// SaveRecordFile saves the metadata of a fully verified record file
func (r *PostgresRepository) SaveRecordFile(ctx context.Context, file *models.RecordFile) error {
	query := `
		INSERT INTO record_files (
			name, version, hapi_version, previous_hash, file_hash,
			digest_algorithm, count, consensus_start, consensus_end,
			bytes, processed_at, processing_duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		file.Name,
		file.Version,
		file.HapiVersion,
		file.PreviousHash,
		file.FileHash,
		file.DigestAlgorithm,
		file.Count,
		file.ConsensusStart,
		file.ConsensusEnd,
		file.Bytes,
		file.ProcessedAt,
		file.ProcessingDuration,
	)

	if err != nil {
		return fmt.Errorf("failed to save record file: %w", err)
	}

	return nil
}

// GetRecordFile retrieves a record file by name
func (r *PostgresRepository) GetRecordFile(ctx context.Context, name string) (*models.RecordFile, error) {
	query := `
		SELECT
			name, version, hapi_version, previous_hash, file_hash,
			digest_algorithm, count, consensus_start, consensus_end,
			bytes, processed_at, processing_duration_ms
		FROM record_files
		WHERE name = $1
	`

	var file models.RecordFile
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&file.Name,
		&file.Version,
		&file.HapiVersion,
		&file.PreviousHash,
		&file.FileHash,
		&file.DigestAlgorithm,
		&file.Count,
		&file.ConsensusStart,
		&file.ConsensusEnd,
		&file.Bytes,
		&file.ProcessedAt,
		&file.ProcessingDuration,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record file not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record file: %w", err)
	}

	return &file, nil
}

// GetLatestRecordFile returns the most recently imported record file, or nil
// when nothing has been imported yet
func (r *PostgresRepository) GetLatestRecordFile(ctx context.Context) (*models.RecordFile, error) {
	query := `
		SELECT
			name, version, hapi_version, previous_hash, file_hash,
			digest_algorithm, count, consensus_start, consensus_end,
			bytes, processed_at, processing_duration_ms
		FROM record_files
		ORDER BY name DESC
		LIMIT 1
	`

	var file models.RecordFile
	err := r.pool.QueryRow(ctx, query).Scan(
		&file.Name,
		&file.Version,
		&file.HapiVersion,
		&file.PreviousHash,
		&file.FileHash,
		&file.DigestAlgorithm,
		&file.Count,
		&file.ConsensusStart,
		&file.ConsensusEnd,
		&file.Bytes,
		&file.ProcessedAt,
		&file.ProcessingDuration,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest record file: %w", err)
	}

	return &file, nil
}

// ListRecordFiles lists imported record files with pagination, newest first
func (r *PostgresRepository) ListRecordFiles(ctx context.Context, limit, offset int) ([]*models.RecordFile, error) {
	query := `
		SELECT
			name, version, hapi_version, previous_hash, file_hash,
			digest_algorithm, count, consensus_start, consensus_end,
			bytes, processed_at, processing_duration_ms
		FROM record_files
		ORDER BY name DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}
	defer rows.Close()

	var files []*models.RecordFile

	for rows.Next() {
		var file models.RecordFile
		err := rows.Scan(
			&file.Name,
			&file.Version,
			&file.HapiVersion,
			&file.PreviousHash,
			&file.FileHash,
			&file.DigestAlgorithm,
			&file.Count,
			&file.ConsensusStart,
			&file.ConsensusEnd,
			&file.Bytes,
			&file.ProcessedAt,
			&file.ProcessingDuration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record file: %w", err)
		}
		files = append(files, &file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record files: %w", err)
	}

	return files, nil
}

// SaveTransactions batch-inserts raw transactions using a single pgx batch
func (r *PostgresRepository) SaveTransactions(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	query := `
		INSERT INTO transactions (
			consensus_ns, file_name, transaction_bytes, record_bytes
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (consensus_ns) DO NOTHING
	`

	start := time.Now()
	batch := &pgx.Batch{}
	for _, tx := range transactions {
		batch.Queue(query, tx.ConsensusNs, tx.FileName, tx.TransactionBytes, tx.RecordBytes)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range transactions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to batch insert transactions: %w", err)
		}
	}

	metrics.BatchInsertSize.Observe(float64(len(transactions)))
	metrics.DatabaseBatchInsertDuration.Observe(time.Since(start).Seconds())

	return nil
}

// ListTransactions lists transactions of a record file in consensus order
func (r *PostgresRepository) ListTransactions(ctx context.Context, fileName string, limit, offset int) ([]*models.Transaction, error) {
	query := `
		SELECT consensus_ns, file_name, transaction_bytes, record_bytes
		FROM transactions
		WHERE file_name = $1
		ORDER BY consensus_ns ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, fileName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction

	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ConsensusNs, &tx.FileName, &tx.TransactionBytes, &tx.RecordBytes); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
