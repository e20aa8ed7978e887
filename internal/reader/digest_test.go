package reader

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"testing"

	"importer/internal/models"
)

func TestV1DigestConcatenatesChannels(t *testing.T) {
	d := NewV1Digest()
	if err := d.UpdateHeader([]byte("head")); err != nil {
		t.Fatalf("UpdateHeader failed: %v", err)
	}
	if err := d.UpdateBody([]byte("body")); err != nil {
		t.Fatalf("UpdateBody failed: %v", err)
	}

	sum, err := d.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	want := sha512.Sum384([]byte("headbody"))
	if !bytes.Equal(sum, want[:]) {
		t.Errorf("Expected %x, got %x", want, sum)
	}
}

func TestV2DigestFoldsBodyHash(t *testing.T) {
	d := NewV2Digest()
	if err := d.UpdateHeader([]byte("head")); err != nil {
		t.Fatalf("UpdateHeader failed: %v", err)
	}
	if err := d.UpdateBody([]byte("body")); err != nil {
		t.Fatalf("UpdateBody failed: %v", err)
	}

	sum, err := d.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	bodyHash := sha512.Sum384([]byte("body"))
	want := sha512.Sum384(append([]byte("head"), bodyHash[:]...))
	if !bytes.Equal(sum, want[:]) {
		t.Errorf("Expected %x, got %x", want, sum)
	}
}

func TestDigestSealSemantics(t *testing.T) {
	tests := []struct {
		name      string
		newDigest func() FileDigest
	}{
		{"v1", NewV1Digest},
		{"v2", NewV2Digest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.newDigest()
			if _, err := d.Digest(); err != nil {
				t.Fatalf("First Digest failed: %v", err)
			}

			var internal *InternalError
			if _, err := d.Digest(); !errors.As(err, &internal) {
				t.Errorf("Expected InternalError on second Digest, got %v", err)
			}
			if err := d.UpdateHeader([]byte{1}); !errors.As(err, &internal) {
				t.Errorf("Expected InternalError on UpdateHeader after seal, got %v", err)
			}
			if err := d.UpdateBody([]byte{1}); !errors.As(err, &internal) {
				t.Errorf("Expected InternalError on UpdateBody after seal, got %v", err)
			}
		})
	}
}

// recordingDigest captures the exact byte sequences fed to each channel so
// tests can assert the reader's digest input byte for byte
type recordingDigest struct {
	header bytes.Buffer
	body   bytes.Buffer
}

func (d *recordingDigest) UpdateHeader(p []byte) error { d.header.Write(p); return nil }
func (d *recordingDigest) UpdateBody(p []byte) error   { d.body.Write(p); return nil }
func (d *recordingDigest) Digest() ([]byte, error)     { return make([]byte, DigestSize), nil }

func TestReaderDigestInputBytes(t *testing.T) {
	prevHash := bytes.Repeat([]byte{0x42}, DigestSize)
	f := testFile{
		version:  1,
		hapi:     7,
		prevHash: prevHash,
		items:    []testItem{{tx: []byte{0xAA, 0xBB}, rec: recordBlob(1000)}},
	}

	rec := &recordingDigest{}
	r := newPreV5Reader(1, func() FileDigest { return rec })

	if _, err := r.Read(NewSource("digestinput.rcd", bytes.NewReader(f.encode())), nil); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// Header channel: version, hapi version, marker, previous hash, in order
	wantHeader := append(append(append(int32Bytes(1), int32Bytes(7)...), prevHashMarker), prevHash...)
	if !bytes.Equal(rec.header.Bytes(), wantHeader) {
		t.Errorf("Header digest input mismatch:\nwant %x\ngot  %x", wantHeader, rec.header.Bytes())
	}

	// Body channel: marker, tx length, tx bytes, record length, record bytes
	wantBody := []byte{recordMarker}
	wantBody = append(wantBody, int32Bytes(2)...)
	wantBody = append(wantBody, 0xAA, 0xBB)
	wantBody = append(wantBody, int32Bytes(int32(len(recordBlob(1000))))...)
	wantBody = append(wantBody, recordBlob(1000)...)
	if !bytes.Equal(rec.body.Bytes(), wantBody) {
		t.Errorf("Body digest input mismatch:\nwant %x\ngot  %x", wantBody, rec.body.Bytes())
	}
}

func TestReaderVersionMismatch(t *testing.T) {
	// Calling a concrete reader directly with a different version tag must
	// fail the header validation
	f := defaultTestFile(2, 1000)
	r := newPreV5Reader(1, NewV1Digest)

	_, err := r.Read(NewSource("mismatch.rcd", bytes.NewReader(f.encode())), func(*models.RecordItem) error {
		t.Error("Callback must not run on version mismatch")
		return nil
	})

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError, got %v", err)
	}
	if formatErr.Field != "record file version" {
		t.Errorf("Expected record file version field, got %q", formatErr.Field)
	}
}

func TestDigestHexOutput(t *testing.T) {
	f := defaultTestFile(1, 1000)

	rf, _, err := readAll(t, "hex.rcd", f.encode())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	raw, err := hex.DecodeString(rf.FileHash)
	if err != nil {
		t.Fatalf("File hash is not valid hex: %v", err)
	}
	if len(raw) != DigestSize {
		t.Errorf("Expected %d-byte digest, got %d", DigestSize, len(raw))
	}
}
