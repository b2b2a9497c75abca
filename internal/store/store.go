// Package store provides the on-disk backends behind the ledger.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/quitc/internal/model"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Backend is a ledger.Storage that also owns a file on disk.
type Backend interface {
	Load(ctx context.Context) (model.Days, error)
	Save(ctx context.Context, days model.Days) error
	Path() string
	// SavedAt returns when the ledger was last written, or the zero time.
	SavedAt(ctx context.Context) (time.Time, error)
	Close() error
}

// DefaultDataDir returns the XDG data directory for quitc.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "quitc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "quitc")
}

// Open returns the backend named kind rooted at dataDir.
func Open(kind, dataDir string) (Backend, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	switch kind {
	case "", BackendSQLite:
		return OpenSQLite(filepath.Join(dataDir, "quitc.db"))
	case BackendJSON:
		return NewJSON(filepath.Join(dataDir, "days.json")), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (expected sqlite|json)", kind)
	}
}
