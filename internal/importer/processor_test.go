package importer

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"google.golang.org/protobuf/encoding/protowire"

	"importer/internal/models"
	"importer/internal/reader"
	"importer/internal/retry"
	"importer/internal/storage"
)

// fakeRepository is an in-memory Repository for tests
type fakeRepository struct {
	mu           sync.Mutex
	files        []*models.RecordFile
	transactions []*models.Transaction
	saveErr      error
}

var _ storage.Repository = (*fakeRepository)(nil)

func (r *fakeRepository) SaveRecordFile(ctx context.Context, file *models.RecordFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, file)
	return nil
}

func (r *fakeRepository) GetRecordFile(ctx context.Context, name string) (*models.RecordFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errors.New("record file not found")
}

func (r *fakeRepository) GetLatestRecordFile(ctx context.Context) (*models.RecordFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.files) == 0 {
		return nil, nil
	}
	return r.files[len(r.files)-1], nil
}

func (r *fakeRepository) ListRecordFiles(ctx context.Context, limit, offset int) ([]*models.RecordFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.RecordFile(nil), r.files...), nil
}

func (r *fakeRepository) SaveTransactions(ctx context.Context, transactions []*models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.transactions = append(r.transactions, transactions...)
	return nil
}

func (r *fakeRepository) ListTransactions(ctx context.Context, fileName string, limit, offset int) ([]*models.Transaction, error) {
	return nil, nil
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

func (r *fakeRepository) fileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// recordBlob encodes a minimal transaction record with the consensus
// timestamp (nanoseconds) in field 3
func recordBlob(ns int64) []byte {
	var ts []byte
	if s := ns / 1e9; s != 0 {
		ts = protowire.AppendTag(ts, 1, protowire.VarintType)
		ts = protowire.AppendVarint(ts, uint64(s))
	}
	if n := ns % 1e9; n != 0 {
		ts = protowire.AppendTag(ts, 2, protowire.VarintType)
		ts = protowire.AppendVarint(ts, uint64(n))
	}

	var b []byte
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b
}

// encodeRecordFile builds a version 1 record file with one item per timestamp
func encodeRecordFile(prevHash []byte, timestamps ...int64) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, int32(1)) // file version
	binary.Write(buf, binary.BigEndian, int32(3)) // hapi version
	buf.WriteByte(1)                              // previous hash marker
	buf.Write(prevHash)
	for i, ts := range timestamps {
		tx := []byte{0xAA, byte(i)}
		rec := recordBlob(ts)
		buf.WriteByte(2) // record marker
		binary.Write(buf, binary.BigEndian, int32(len(tx)))
		buf.Write(tx)
		binary.Write(buf, binary.BigEndian, int32(len(rec)))
		buf.Write(rec)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func newTestProcessor(repo storage.Repository) *Processor {
	return NewProcessor(repo, retry.NewNoRetryStrategy())
}

func TestProcessFileParsesAndStoresTransactions(t *testing.T) {
	dir := t.TempDir()
	data := encodeRecordFile(make([]byte, reader.DigestSize), 1000, 2000, 3000)
	path := writeFile(t, dir, "2019-08-30T18_10_00.419072Z.rcd", data)

	repo := &fakeRepository{}
	rf, err := newTestProcessor(repo).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if rf.Name != "2019-08-30T18_10_00.419072Z.rcd" {
		t.Errorf("Unexpected file name: %s", rf.Name)
	}
	if rf.Count != 3 {
		t.Errorf("Expected 3 items, got %d", rf.Count)
	}
	if rf.ConsensusStart != 1000 || rf.ConsensusEnd != 3000 {
		t.Errorf("Unexpected consensus range: [%d, %d]", rf.ConsensusStart, rf.ConsensusEnd)
	}

	wantHash := sha512.Sum384(data)
	if rf.FileHash != hex.EncodeToString(wantHash[:]) {
		t.Errorf("Unexpected file hash: %s", rf.FileHash)
	}

	if len(repo.transactions) != 3 {
		t.Fatalf("Expected 3 stored transactions, got %d", len(repo.transactions))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if repo.transactions[i].ConsensusNs != want {
			t.Errorf("Transaction %d: expected consensus %d, got %d", i, want, repo.transactions[i].ConsensusNs)
		}
		if repo.transactions[i].FileName != rf.Name {
			t.Errorf("Transaction %d: expected file name %s, got %s", i, rf.Name, repo.transactions[i].FileName)
		}
	}

	// ProcessFile parses only; the record file row is committed by Process
	if repo.fileCount() != 0 {
		t.Errorf("ProcessFile must not save the record file row, got %d", repo.fileCount())
	}
}

func TestProcessFileGzip(t *testing.T) {
	dir := t.TempDir()
	data := encodeRecordFile(make([]byte, reader.DigestSize), 1000)

	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatalf("Failed to compress test file: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}
	path := writeFile(t, dir, "2019-08-30T18_10_05.000000Z.rcd.gz", buf.Bytes())

	repo := &fakeRepository{}
	rf, err := newTestProcessor(repo).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	// The logical name and the digest are those of the uncompressed stream
	if rf.Name != "2019-08-30T18_10_05.000000Z.rcd" {
		t.Errorf("Expected .gz suffix stripped, got %s", rf.Name)
	}
	wantHash := sha512.Sum384(data)
	if rf.FileHash != hex.EncodeToString(wantHash[:]) {
		t.Errorf("Unexpected file hash: %s", rf.FileHash)
	}
}

func TestProcessFileFormatError(t *testing.T) {
	dir := t.TempDir()
	data := encodeRecordFile(make([]byte, reader.DigestSize), 1000)
	path := writeFile(t, dir, "bad.rcd", data[:len(data)-2])

	repo := &fakeRepository{}
	_, err := newTestProcessor(repo).ProcessFile(context.Background(), path)

	var formatErr *reader.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError for truncated file, got %v", err)
	}
}

func TestProcessVerifiesChainLink(t *testing.T) {
	dir := t.TempDir()
	data := encodeRecordFile(bytes.Repeat([]byte{0xCC}, reader.DigestSize), 1000)
	path := writeFile(t, dir, "file.rcd", data)

	linkedHash := hex.EncodeToString(bytes.Repeat([]byte{0xCC}, reader.DigestSize))

	repo := &fakeRepository{}
	p := newTestProcessor(repo)

	// Mismatched previous hash must fail before the file row is committed
	if _, err := p.Process(context.Background(), path, "ff00"); err == nil {
		t.Fatal("Expected chain mismatch error")
	}
	if repo.fileCount() != 0 {
		t.Errorf("No file row may be committed on chain mismatch, got %d", repo.fileCount())
	}

	// Matching hash commits the row
	rf, err := p.Process(context.Background(), path, linkedHash)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if repo.fileCount() != 1 {
		t.Fatalf("Expected 1 committed file row, got %d", repo.fileCount())
	}
	if repo.files[0] != rf {
		t.Error("Committed row does not match the returned record file")
	}
}

func TestProcessAcceptsEmptyPreviousHash(t *testing.T) {
	dir := t.TempDir()
	data := encodeRecordFile(bytes.Repeat([]byte{0xCC}, reader.DigestSize), 1000)
	path := writeFile(t, dir, "file.rcd", data)

	repo := &fakeRepository{}
	if _, err := newTestProcessor(repo).Process(context.Background(), path, ""); err != nil {
		t.Fatalf("Empty previous hash must accept any link, got %v", err)
	}
}

func TestStreamerImportsChainInOrder(t *testing.T) {
	dir := t.TempDir()

	// Two files whose hashes chain: the second file's previous hash is the
	// digest of the first file's bytes
	first := encodeRecordFile(make([]byte, reader.DigestSize), 1000)
	firstHash := sha512.Sum384(first)
	second := encodeRecordFile(firstHash[:], 2000, 3000)

	writeFile(t, dir, "2019-08-30T18_10_00.000000Z.rcd", first)
	writeFile(t, dir, "2019-08-30T18_10_05.000000Z.rcd", second)

	repo := &fakeRepository{}
	s := NewStreamer(dir, 10*time.Millisecond, "", newTestProcessor(repo), repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for repo.fileCount() < 2 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("Timed out waiting for imports, committed %d files", repo.fileCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled after shutdown, got %v", err)
	}

	if repo.files[0].Name != "2019-08-30T18_10_00.000000Z.rcd" {
		t.Errorf("Unexpected first committed file: %s", repo.files[0].Name)
	}
	if repo.files[1].Name != "2019-08-30T18_10_05.000000Z.rcd" {
		t.Errorf("Unexpected second committed file: %s", repo.files[1].Name)
	}
	if len(repo.transactions) != 3 {
		t.Errorf("Expected 3 transactions across both files, got %d", len(repo.transactions))
	}
}

func TestStreamerStopsOnBrokenChain(t *testing.T) {
	dir := t.TempDir()

	first := encodeRecordFile(make([]byte, reader.DigestSize), 1000)
	// Second file claims a previous hash that does not match the first
	second := encodeRecordFile(bytes.Repeat([]byte{0xEE}, reader.DigestSize), 2000)

	writeFile(t, dir, "a.rcd", first)
	writeFile(t, dir, "b.rcd", second)

	repo := &fakeRepository{}
	s := NewStreamer(dir, 10*time.Millisecond, "", newTestProcessor(repo), repo, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Start(ctx)
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected chain mismatch to stop the streamer, got %v", err)
	}
	if repo.fileCount() != 1 {
		t.Errorf("Only the first file may be committed, got %d", repo.fileCount())
	}
}
