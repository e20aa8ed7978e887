package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"importer/internal/models"
	"importer/internal/reader"
)

// Walks a directory of record files in name order and checks that each
// file's previous-hash header matches the digest of the file before it.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: verifychain <data-dir> [bootstrap-hash]")
		os.Exit(1)
	}

	dir := os.Args[1]
	prevHash := ""
	if len(os.Args) > 2 {
		prevHash = os.Args[2]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".rcd") || strings.HasSuffix(name, ".rcd.gz") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		fmt.Println("No record files found")
		os.Exit(1)
	}

	for _, path := range paths {
		rf, err := readFile(path)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
		if err := rf.VerifyPrevious(prevHash); err != nil {
			fmt.Printf("FAIL %s: %v\n", rf.Name, err)
			os.Exit(1)
		}
		fmt.Printf("OK   %s: %d transactions, hash %s\n", rf.Name, rf.Count, rf.FileHash)
		prevHash = rf.FileHash
	}

	fmt.Printf("Chain intact across %d files\n", len(paths))
}

func readFile(path string) (*models.RecordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	var src io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		src = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	return reader.Read(reader.NewSource(name, src), func(*models.RecordItem) error {
		return nil
	})
}
