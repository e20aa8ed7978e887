package reader

import (
	"crypto/sha512"
	"hash"
)

// DigestAlgorithm identifies the hash algorithm used for record file digests
const DigestAlgorithm = "sha384"

// DigestSize is the size in bytes of a record file digest and of the
// previous-file hash carried in every header
const DigestSize = sha512.Size384

// FileDigest accumulates the header and body bytes of a record file and
// produces the file hash. Header and body updates are separate channels
// because format versions differ in how the two are combined: version 1
// hashes the raw concatenation, version 2 hashes the header followed by the
// hash of the body. Digest seals the instance; updating or sealing again
// afterwards is a programming error, not a data error.
type FileDigest interface {
	UpdateHeader(p []byte) error
	UpdateBody(p []byte) error
	Digest() ([]byte, error)
}

// v1Digest feeds header and body bytes into a single hash in call order
type v1Digest struct {
	h      hash.Hash
	sealed bool
}

// NewV1Digest returns the digest strategy for format version 1: the file
// hash covers the entire file contents in read order.
func NewV1Digest() FileDigest {
	return &v1Digest{h: sha512.New384()}
}

func (d *v1Digest) UpdateHeader(p []byte) error { return d.update(p) }

func (d *v1Digest) UpdateBody(p []byte) error { return d.update(p) }

func (d *v1Digest) update(p []byte) error {
	if d.sealed {
		return &InternalError{Msg: "digest updated after seal"}
	}
	d.h.Write(p)
	return nil
}

func (d *v1Digest) Digest() ([]byte, error) {
	if d.sealed {
		return nil, &InternalError{Msg: "digest sealed twice"}
	}
	d.sealed = true
	return d.h.Sum(nil), nil
}

// v2Digest hashes the body separately and folds the body hash into the
// header hash on seal, matching the version 2 file hash definition:
// hash(header || hash(body)). This lets the file hash be recomputed from
// header metadata plus the body hash alone.
type v2Digest struct {
	header hash.Hash
	body   hash.Hash
	sealed bool
}

// NewV2Digest returns the digest strategy for format version 2.
func NewV2Digest() FileDigest {
	return &v2Digest{header: sha512.New384(), body: sha512.New384()}
}

func (d *v2Digest) UpdateHeader(p []byte) error {
	if d.sealed {
		return &InternalError{Msg: "digest updated after seal"}
	}
	d.header.Write(p)
	return nil
}

func (d *v2Digest) UpdateBody(p []byte) error {
	if d.sealed {
		return &InternalError{Msg: "digest updated after seal"}
	}
	d.body.Write(p)
	return nil
}

func (d *v2Digest) Digest() ([]byte, error) {
	if d.sealed {
		return nil, &InternalError{Msg: "digest sealed twice"}
	}
	d.sealed = true
	d.header.Write(d.body.Sum(nil))
	return d.header.Sum(nil), nil
}
