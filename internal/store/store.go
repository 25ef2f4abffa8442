// Package store persists the poll state (offer ids already notified plus
// the first-run flag) and the subscriber set across process runs.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// State is the persisted record of previously-processed offers.
type State struct {
	SeenOfferIDs []string `json:"seenOfferIds"`
	FirstRun     bool     `json:"isFirstRun"`
}

// DefaultState is what a fresh deployment starts from.
func DefaultState() State {
	return State{FirstRun: true}
}

// Seen reports whether id is in the state's seen set.
func (s State) Seen(id string) bool {
	for _, v := range s.SeenOfferIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Store is the persistence contract injected into the poll loop and the
// bot surface. Load calls substitute defaults for missing or corrupt
// data; errors are reserved for infrastructure failures.
type Store interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, st State) error

	Subscribers(ctx context.Context) ([]int64, error)
	// AddSubscriber registers a chat id. It reports whether the id was
	// newly added (false means it was already registered).
	AddSubscriber(ctx context.Context, chatID int64) (bool, error)

	Close() error
}

// Config selects and configures a driver.
//
// Driver values:
//   - "file" (default): JSON files, whole-file overwrite via rename
//   - "sqlite": SQLite database file
//   - "redis": Redis sets (RedisURL required)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	RedisURL    string
}

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "redis":
		return openRedis(ctx, cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
