package cache

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// marker is the content of MarkerFileName.
type marker struct {
	Name        string    `toml:"name"`
	DisplayName string    `toml:"display_name"`
	CreatedAt   time.Time `toml:"created_at"`
}

func writeMarker(path, name, displayName string) error {
	var buf bytes.Buffer
	m := marker{Name: name, DisplayName: displayName, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("failed to encode cache marker: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write cache marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write cache marker: %w", err)
	}
	return nil
}

func readMarker(path string) (*marker, error) {
	var m marker
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to read cache marker: %w", err)
	}
	return &m, nil
}
