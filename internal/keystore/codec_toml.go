package keystore

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/BurntSushi/toml"
)

const tomlHeader = "# keystash keystore. Generated file, do not edit.\n"

// tomlCodec stores the envelope as a TOML document with base64 byte fields.
type tomlCodec struct{}

type tomlDocument struct {
	Version    int         `toml:"version"`
	Type       string      `toml:"type"`
	ID         string      `toml:"id"`
	Salt       string      `toml:"salt"`
	Iterations int         `toml:"iterations"`
	MAC        string      `toml:"mac"`
	Entries    []tomlEntry `toml:"entries"`
}

type tomlEntry struct {
	Alias     string `toml:"alias"`
	Algorithm string `toml:"algorithm"`
	CreatedAt int64  `toml:"created_at"`
	Nonce     string `toml:"nonce"`
	Sealed    string `toml:"sealed"`
}

func (tomlCodec) encode(env *envelope) ([]byte, error) {
	doc := tomlDocument{
		Version:    env.Version,
		Type:       env.Type,
		ID:         env.ID,
		Salt:       encodeBytes(env.Salt),
		Iterations: env.Iterations,
		MAC:        encodeBytes(env.MAC),
	}
	for _, e := range env.Entries {
		doc.Entries = append(doc.Entries, tomlEntry{
			Alias:     e.Alias,
			Algorithm: e.Algorithm,
			CreatedAt: e.CreatedAt,
			Nonce:     encodeBytes(e.Nonce),
			Sealed:    encodeBytes(e.Sealed),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(tomlHeader)
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) decode(data []byte) (*envelope, error) {
	var doc tomlDocument
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unexpected keystore key %q", undecoded[0].String())
	}

	env := &envelope{
		Version:    doc.Version,
		Type:       doc.Type,
		ID:         doc.ID,
		Iterations: doc.Iterations,
		Entries:    make([]sealedEntry, 0, len(doc.Entries)),
	}
	if env.Salt, err = decodeBytes("salt", doc.Salt); err != nil {
		return nil, err
	}
	if env.MAC, err = decodeBytes("mac", doc.MAC); err != nil {
		return nil, err
	}
	for _, e := range doc.Entries {
		entry := sealedEntry{Alias: e.Alias, Algorithm: e.Algorithm, CreatedAt: e.CreatedAt}
		if entry.Nonce, err = decodeBytes("nonce", e.Nonce); err != nil {
			return nil, err
		}
		if entry.Sealed, err = decodeBytes("sealed", e.Sealed); err != nil {
			return nil, err
		}
		env.Entries = append(env.Entries, entry)
	}
	return env, nil
}

func encodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBytes(field, s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return b, nil
}
