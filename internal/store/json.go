package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/quitc/internal/model"
)

// JSON persists the ledger as one object of ISO date -> "CLEAN"/"HEART".
// Writes go through a temp file and rename so readers never see a torn file.
type JSON struct {
	path string
}

// NewJSON returns a store backed by the file at path.
func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

// Path returns the file path.
func (j *JSON) Path() string {
	return j.path
}

// SavedAt returns the file's modification time, or the zero time if it
// does not exist yet.
func (j *JSON) SavedAt(_ context.Context) (time.Time, error) {
	fi, err := os.Stat(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Close is a no-op; it exists so both backends satisfy Backend.
func (j *JSON) Close() error {
	return nil
}

// Load reads the file. A missing or empty file is an empty ledger; only
// malformed JSON is an error.
func (j *JSON) Load(_ context.Context) (model.Days, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Days{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return model.Days{}, nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}

	// Entries that fail to parse are skipped, as in the SQLite backend.
	days := make(model.Days, len(raw))
	for k, v := range raw {
		date, err := model.ParseDate(k)
		if err != nil {
			continue
		}
		status, err := model.ParseStatus(v)
		if err != nil {
			continue
		}
		days[date] = status
	}
	return days, nil
}

// Save writes days atomically.
func (j *JSON) Save(_ context.Context, days model.Days) error {
	if days == nil {
		days = model.Days{}
	}
	data, err := json.MarshalIndent(days, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".days-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
