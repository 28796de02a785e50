package project

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Digest is a fixed 256-bit content hash used as a cache key.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// OfBytes hashes a byte slice.
func OfBytes(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// OfFile hashes a file's contents.
func OfFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, err
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Combine hashes a content digest together with its dependencies. The
// dependency order must be deterministic.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
