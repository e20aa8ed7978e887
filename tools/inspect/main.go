package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"importer/internal/debug"
	"importer/internal/models"
	"importer/internal/reader"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: inspect <record-file>")
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	path := os.Args[1]
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	name := filepath.Base(path)
	var src io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			fmt.Printf("Error opening gzip stream: %v\n", err)
			os.Exit(1)
		}
		defer gz.Close()
		src = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	rf, err := reader.Read(reader.NewSource(name, src), func(item *models.RecordItem) error {
		ts, err := item.ConsensusTimestamp()
		if err != nil {
			return err
		}
		debug.PrintTransaction(&models.Transaction{
			ConsensusNs:      ts,
			FileName:         name,
			TransactionBytes: item.TransactionBytes,
			RecordBytes:      item.RecordBytes,
		})
		return nil
	})
	if err != nil {
		fmt.Printf("Error reading record file: %v\n", err)
		os.Exit(1)
	}

	debug.PrintRecordFile(rf)
	fmt.Printf("%s: version %d, %d transactions, hash %s\n", rf.Name, rf.Version, rf.Count, rf.FileHash)
}
