package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/keystash/internal/configs"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// FileName is the audit log inside the cache root.
const FileName = "audit.jsonl"

// TimestampFormat is RFC3339 with microseconds, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`
	User      string `json:"user"`
	Operation string `json:"op"`
	Host      string `json:"host,omitempty"`

	// Optional fields depending on operation.
	Outcome     string   `json:"outcome,omitempty"`     // For key: created, loaded, added, recovered.
	Alias       string   `json:"alias,omitempty"`       // Keystore alias the key lives under.
	Algorithm   string   `json:"algorithm,omitempty"`   // Key algorithm.
	Type        string   `json:"type,omitempty"`        // Resolved keystore type.
	Fingerprint string   `json:"fingerprint,omitempty"` // Key fingerprint, never the key.
	Files       []string `json:"files,omitempty"`       // For encrypt/decrypt.
	Path        string   `json:"path,omitempty"`        // Keystore path, for key and reset.
}

// NewEntry returns an entry for op with the current user and host filled in.
// Several machines can share one cache root over a network mount.
func NewEntry(op string) Entry {
	entry := Entry{Operation: op}
	if configs.UserKeystashSettings != nil {
		entry.User = configs.UserKeystashSettings.Username
	}
	if host, err := utils.GetHostname(); err == nil {
		entry.Host = host
	}
	return entry
}

// Log appends an entry to the audit log under cacheRoot.
// If logging fails, the entry is dropped. Operations should not fail just
// because audit logging failed.
func Log(cacheRoot string, entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	logPath := LogPath(cacheRoot)
	if logPath == "" {
		return
	}

	if err := os.MkdirAll(cacheRoot, 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the path to the audit log file.
// Returns empty string if no cache root is set.
func LogPath(cacheRoot string) string {
	if cacheRoot == "" {
		return ""
	}
	return filepath.Join(cacheRoot, FileName)
}

// ReadEntries reads all entries from the audit log under cacheRoot.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(cacheRoot string) ([]Entry, error) {
	logPath := LogPath(cacheRoot)
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Partial write.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
