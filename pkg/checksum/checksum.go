// Package checksum provides the SHA-256 helpers the photo storage backends use
// to fingerprint uploaded objects.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// CalculateSHA256 calculates the SHA256 checksum of data from a reader
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SHA256Bytes returns the hex SHA256 of data
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader hashes everything read through it
type Reader struct {
	r      io.Reader
	hasher hash.Hash
	n      int64
}

// NewReader wraps r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hasher: sha256.New()}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.hasher.Write(p[:n])
		r.n += int64(n)
	}
	return n, err
}

// Sum returns the hex SHA256 of the bytes read so far
func (r *Reader) Sum() string {
	return hex.EncodeToString(r.hasher.Sum(nil))
}

// BytesRead returns the number of bytes read so far
func (r *Reader) BytesRead() int64 { return r.n }
