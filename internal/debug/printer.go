package debug

import (
	"encoding/json"
	"log/slog"

	"importer/internal/models"
)

// PrintRecordFile prints the record file metadata in JSON format
func PrintRecordFile(file *models.RecordFile) {
	jsonData, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal record file to JSON", "error", err)
		return
	}

	slog.Debug("Record file details", "json", string(jsonData))
}

// PrintTransaction prints the transaction in JSON format
func PrintTransaction(tx *models.Transaction) {
	jsonData, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal transaction to JSON", "error", err)
		return
	}

	slog.Debug("Transaction details", "json", string(jsonData))
}
