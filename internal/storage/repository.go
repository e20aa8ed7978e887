package storage

import (
	"context"

	"importer/internal/models"
)

// Repository defines the interface for all storage operations
type Repository interface {
	// Record Files
	SaveRecordFile(ctx context.Context, file *models.RecordFile) error
	GetRecordFile(ctx context.Context, name string) (*models.RecordFile, error)
	GetLatestRecordFile(ctx context.Context) (*models.RecordFile, error)
	ListRecordFiles(ctx context.Context, limit, offset int) ([]*models.RecordFile, error)

	// Transactions
	SaveTransactions(ctx context.Context, transactions []*models.Transaction) error
	ListTransactions(ctx context.Context, fileName string, limit, offset int) ([]*models.Transaction, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
