package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
)

// Algorithm names understood by Generator.
const (
	AlgorithmAES              = "AES"
	AlgorithmAES128           = "AES-128"
	AlgorithmAES192           = "AES-192"
	AlgorithmAES256           = "AES-256"
	AlgorithmXSalsa20Poly1305 = "XSalsa20-Poly1305"
	AlgorithmHmacSHA256       = "HmacSHA256"
)

// keySizes maps the canonical algorithm name to its key length in bytes.
var keySizes = map[string]int{
	AlgorithmAES:              32, // AES-256
	AlgorithmAES128:           16,
	AlgorithmAES192:           24,
	AlgorithmAES256:           32,
	AlgorithmXSalsa20Poly1305: 32,
	AlgorithmHmacSHA256:       32,
}

// SecretKey is symmetric key material tagged with the algorithm that produced it.
type SecretKey struct {
	Algorithm string
	Material  []byte
}

// Len returns the key length in bytes.
func (k SecretKey) Len() int {
	return len(k.Material)
}

// Clone returns a copy that shares no memory with k.
func (k SecretKey) Clone() SecretKey {
	material := make([]byte, len(k.Material))
	copy(material, k.Material)
	return SecretKey{Algorithm: k.Algorithm, Material: material}
}

// Equal reports whether both keys carry the same algorithm and material.
func (k SecretKey) Equal(other SecretKey) bool {
	if !strings.EqualFold(k.Algorithm, other.Algorithm) {
		return false
	}
	return subtle.ConstantTimeCompare(k.Material, other.Material) == 1
}

// Fingerprint returns a short hex digest of the key material that is safe to display.
func (k SecretKey) Fingerprint() string {
	sum := sha256.Sum256(k.Material)
	return hex.EncodeToString(sum[:8])
}

// CanonicalAlgorithm resolves a case-insensitive algorithm name.
func CanonicalAlgorithm(algorithm string) (string, bool) {
	for name := range keySizes {
		if strings.EqualFold(name, strings.TrimSpace(algorithm)) {
			return name, true
		}
	}
	return "", false
}

// SupportedAlgorithms lists the algorithms Generator can produce keys for.
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(keySizes))
	for name := range keySizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generator produces fresh random key material.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorWithReader returns a Generator reading from r.
func NewGeneratorWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate creates a new random key for algorithm.
//
// Returns a *KeyGenerationError wrapping ErrUnsupportedAlgorithm if the
// algorithm is unknown, or the read error if the entropy source fails.
func (g *Generator) Generate(algorithm string) (SecretKey, error) {
	name, ok := CanonicalAlgorithm(algorithm)
	if !ok {
		return SecretKey{}, &kerrors.KeyGenerationError{Algorithm: algorithm, Err: kerrors.ErrUnsupportedAlgorithm}
	}

	material := make([]byte, keySizes[name])
	if _, err := io.ReadFull(g.rand, material); err != nil {
		return SecretKey{}, &kerrors.KeyGenerationError{Algorithm: name, Err: fmt.Errorf("reading random bytes: %w", err)}
	}

	return SecretKey{Algorithm: name, Material: material}, nil
}
