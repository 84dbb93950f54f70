package keystore

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/secrets"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	formatVersion  = 1
	iterationCount = 10000 // PBKDF2 iterations
	saltLength     = 16
	nonceLength    = 24

	minIterations = 1000
	maxIterations = 1000000
)

// envelope is the serialized form shared by every container codec.
type envelope struct {
	Version    int           `cbor:"version"`
	Type       string        `cbor:"type"`
	ID         string        `cbor:"id"`
	Salt       []byte        `cbor:"salt"`
	Iterations int           `cbor:"iterations"`
	Entries    []sealedEntry `cbor:"entries"`
	MAC        []byte        `cbor:"mac"`
}

type sealedEntry struct {
	Alias     string `cbor:"alias"`
	Algorithm string `cbor:"algorithm"`
	CreatedAt int64  `cbor:"created_at"`
	Nonce     []byte `cbor:"nonce"`
	Sealed    []byte `cbor:"sealed"`
}

// macBody is everything the MAC covers, encoded as deterministic CBOR.
type macBody struct {
	Version    int           `cbor:"version"`
	Type       string        `cbor:"type"`
	ID         string        `cbor:"id"`
	Salt       []byte        `cbor:"salt"`
	Iterations int           `cbor:"iterations"`
	Entries    []sealedEntry `cbor:"entries"`
}

type codec interface {
	encode(env *envelope) ([]byte, error)
	decode(data []byte) (*envelope, error)
}

var codecs = map[Type]codec{
	TypeCBOR: cborCodec{},
	TypeTOML: tomlCodec{},
}

var macEncMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Load parses a serialized keystore of type t.
//
// Returns a *CorruptKeystoreError if the bytes are not a valid container of
// type t or the password check fails.
func Load(t Type, data []byte, password []byte) (*Keystore, error) {
	ks, err := load(t, data, password)
	if err != nil {
		return nil, &kerrors.CorruptKeystoreError{Err: err}
	}
	return ks, nil
}

func load(t Type, data []byte, password []byte) (*Keystore, error) {
	c, ok := codecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedKeystoreType, t)
	}

	env, err := c.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s keystore: %w", t, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", env.Version)
	}
	if Type(env.Type) != t {
		return nil, fmt.Errorf("keystore type mismatch: expected %s, found %q", t, env.Type)
	}
	if len(env.Salt) != saltLength || env.Iterations < minIterations || env.Iterations > maxIterations {
		return nil, errors.New("invalid keystore key derivation parameters")
	}

	sealKey, macKey := deriveKeys(password, env.Salt, env.Iterations)

	expected, err := computeMAC(macKey, env)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(expected, env.MAC) {
		return nil, errors.New("keystore password was incorrect or the keystore was tampered with")
	}

	ks := &Keystore{typ: t, id: env.ID, entries: make(map[string]Entry, len(env.Entries))}
	for _, sealed := range env.Entries {
		alias := normalizeAlias(sealed.Alias)
		if _, dup := ks.entries[alias]; dup || alias == "" {
			return nil, fmt.Errorf("invalid or duplicate alias %q", sealed.Alias)
		}
		if len(sealed.Nonce) != nonceLength {
			return nil, fmt.Errorf("invalid nonce for alias %q", alias)
		}
		var nonce [nonceLength]byte
		copy(nonce[:], sealed.Nonce)
		material, ok := secretbox.Open(nil, sealed.Sealed, &nonce, sealKey)
		if !ok {
			return nil, fmt.Errorf("failed to open entry %q", alias)
		}
		ks.entries[alias] = Entry{
			Alias:     alias,
			Key:       secrets.SecretKey{Algorithm: sealed.Algorithm, Material: material},
			CreatedAt: time.Unix(sealed.CreatedAt, 0).UTC(),
		}
	}

	return ks, nil
}

// Store serializes ks, protecting it with password. Every entry is written,
// and a fresh salt is drawn on each call.
func Store(ks *Keystore, password []byte) ([]byte, error) {
	c, ok := codecs[ks.typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedKeystoreType, ks.typ)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating keystore salt: %w", err)
	}
	sealKey, macKey := deriveKeys(password, salt, iterationCount)

	env := &envelope{
		Version:    formatVersion,
		Type:       string(ks.typ),
		ID:         ks.id,
		Salt:       salt,
		Iterations: iterationCount,
		Entries:    make([]sealedEntry, 0, len(ks.entries)),
	}

	for _, alias := range ks.Aliases() {
		entry := ks.entries[alias]
		var nonce [nonceLength]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return nil, fmt.Errorf("generating entry nonce: %w", err)
		}
		env.Entries = append(env.Entries, sealedEntry{
			Alias:     alias,
			Algorithm: entry.Key.Algorithm,
			CreatedAt: entry.CreatedAt.Unix(),
			Nonce:     nonce[:],
			Sealed:    secretbox.Seal(nil, entry.Key.Material, &nonce, sealKey),
		})
	}

	mac, err := computeMAC(macKey, env)
	if err != nil {
		return nil, err
	}
	env.MAC = mac

	return c.encode(env)
}

// deriveKeys splits one PBKDF2 output into an entry sealing key and a MAC key.
func deriveKeys(password, salt []byte, iterations int) (*[32]byte, []byte) {
	derived := pbkdf2.Key(password, salt, iterations, 64, sha256.New)
	var sealKey [32]byte
	copy(sealKey[:], derived[:32])
	return &sealKey, derived[32:]
}

func computeMAC(macKey []byte, env *envelope) ([]byte, error) {
	body, err := macEncMode.Marshal(macBody{
		Version:    env.Version,
		Type:       env.Type,
		ID:         env.ID,
		Salt:       env.Salt,
		Iterations: env.Iterations,
		Entries:    env.Entries,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding keystore body: %w", err)
	}
	mac := hmac.New(sha256.New, macKey)
	mac.Write(body)
	return mac.Sum(nil), nil
}
