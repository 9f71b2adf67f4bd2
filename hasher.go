package assetpipe

import (
	_ "crypto/sha256" // registers digest.SHA256
	_ "crypto/sha512" // registers digest.SHA384 and digest.SHA512

	"github.com/opencontainers/go-digest"
)

// Hasher derives a resource identifier from payload bytes. Equal bytes must
// give equal identifiers.
type Hasher interface {
	Hash(data []byte) string
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(data []byte) string

// Hash implements Hasher.
func (f HasherFunc) Hash(data []byte) string { return f(data) }

// DigestHasher identifies payloads by their hex digest. The zero value uses
// SHA-256.
type DigestHasher struct {
	Algorithm digest.Algorithm
}

// Hash implements Hasher.
func (h DigestHasher) Hash(data []byte) string {
	alg := h.Algorithm
	if alg == "" || !alg.Available() {
		alg = digest.Canonical
	}
	return alg.FromBytes(data).Encoded()
}
