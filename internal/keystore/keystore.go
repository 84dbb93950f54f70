package keystore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/secrets"

	"github.com/google/uuid"
)

// Entry is one named secret key inside a keystore.
type Entry struct {
	Alias     string
	Key       secrets.SecretKey
	CreatedAt time.Time
}

// Keystore is an in-memory container of secret-key entries. It holds at most
// one entry per alias; aliases are case-insensitive.
type Keystore struct {
	typ     Type
	id      string
	entries map[string]Entry
}

// CreateEmpty returns an empty keystore of type t.
// Returns ErrUnsupportedKeystoreType if no container codec exists for t.
func CreateEmpty(t Type) (*Keystore, error) {
	if !t.Supported() {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedKeystoreType, t)
	}
	return &Keystore{
		typ:     t,
		id:      uuid.New().String(),
		entries: make(map[string]Entry),
	}, nil
}

// Type returns the container type of the keystore.
func (ks *Keystore) Type() Type {
	return ks.typ
}

// ID identifies one keystore across rewrites. A regenerated keystore gets a new ID.
func (ks *Keystore) ID() string {
	return ks.id
}

// Len returns the number of entries.
func (ks *Keystore) Len() int {
	return len(ks.entries)
}

// Aliases returns the entry aliases in sorted order.
func (ks *Keystore) Aliases() []string {
	aliases := make([]string, 0, len(ks.entries))
	for alias := range ks.entries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Entry returns a copy of the key stored under alias.
func (ks *Keystore) Entry(alias string) (secrets.SecretKey, bool) {
	entry, ok := ks.entries[normalizeAlias(alias)]
	if !ok {
		return secrets.SecretKey{}, false
	}
	return entry.Key.Clone(), true
}

// SetEntry stores key under alias, replacing any existing entry for it.
func (ks *Keystore) SetEntry(alias string, key secrets.SecretKey) error {
	alias = normalizeAlias(alias)
	if alias == "" {
		return fmt.Errorf("keystore alias must not be empty")
	}
	if len(key.Material) == 0 {
		return fmt.Errorf("%w: empty key for alias %q", kerrors.ErrInvalidKeyLength, alias)
	}
	ks.entries[alias] = Entry{
		Alias:     alias,
		Key:       key.Clone(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	return nil
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}
