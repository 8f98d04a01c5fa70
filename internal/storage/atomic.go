// Package storage implements the persisted state layout: atomic JSON file
// writes (write-temp-then-rename) and the read-with-retry pattern for
// readers racing a concurrent write. Modeled on a saveState/loadState pair
// built around a single state file, generalized to any path under the
// data directory.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Header is embedded in every persisted file.
type Header struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schema_version"`
	LastUpdated   string `json:"last_updated"`
}

// CurrentSchemaVersion is the schema_version stamped on every file written
// by this package today.
const CurrentSchemaVersion = 1

// Record wraps a persisted payload with its file-level Header. Wrapping
// happens only at the storage boundary (WriteRecord/ReadRecord) so the
// domain types underneath — protocol.Standings, protocol.Schedule,
// protocol.MatchRecord, a player's OpponentProfile or match history — stay
// exactly the wire payloads the protocol package defines, with no
// storage-only fields leaking into an envelope body.
type Record[T any] struct {
	Header
	Data T `json:"data"`
}

// WriteRecord stamps v with a Header — id, CurrentSchemaVersion, and now as
// last_updated — and writes the wrapped Record to path atomically.
func WriteRecord[T any](path, id string, v T) error {
	rec := Record[T]{
		Header: Header{
			ID:            id,
			SchemaVersion: CurrentSchemaVersion,
			LastUpdated:   time.Now().UTC().Format(time.RFC3339),
		},
		Data: v,
	}
	return WriteJSON(path, rec)
}

// ReadRecord reads the Record at path and returns its Header alongside the
// decoded payload.
func ReadRecord[T any](path string) (Header, T, error) {
	var rec Record[T]
	err := ReadJSON(path, &rec)
	return rec.Header, rec.Data, err
}

// WriteJSON serializes v to path atomically: it writes to a temp file in
// the same directory, then renames over the destination. This guarantees
// readers never observe a partially written file.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("storage: creating directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("storage: renaming into place %s: %w", path, err)
	}
	ok = true
	return nil
}

// ReadJSON reads and decodes the JSON file at path into v. If the file does
// not exist on the first attempt, it retries once after a short delay —
// readers may race a concurrent rename during WriteJSON, and a brief retry
// avoids surfacing that race as a hard error.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			time.Sleep(20 * time.Millisecond)
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return fmt.Errorf("storage: reading %s: %w", path, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: parsing %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
