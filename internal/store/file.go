package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// fileStore is the dependency-free persistence backend.
//
// Files:
//   - <prefix>.state.json       ({seenOfferIds, isFirstRun})
//   - <prefix>.subscribers.json (JSON array of chat ids)
//
// Writes replace the whole file via a temp-file rename, so a crashed
// write never leaves a truncated file behind.
type fileStore struct {
	log zerolog.Logger

	mu              sync.Mutex
	statePath       string
	subscribersPath string
}

func openFile(cfg Config, log zerolog.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "./ofertabot_store"
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{
		log:             log,
		statePath:       prefix + ".state.json",
		subscribersPath: prefix + ".subscribers.json",
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) LoadState(ctx context.Context) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.statePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", s.statePath).Msg("state file unreadable, starting from defaults")
		}
		return DefaultState(), nil
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		s.log.Warn().Err(err).Str("path", s.statePath).Msg("state file corrupt, starting from defaults")
		return DefaultState(), nil
	}
	return st, nil
}

func (s *fileStore) SaveState(ctx context.Context, st State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.statePath, st)
}

func (s *fileStore) Subscribers(ctx context.Context) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSubscribersLocked(), nil
}

func (s *fileStore) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.readSubscribersLocked()
	for _, id := range subs {
		if id == chatID {
			return false, nil
		}
	}
	subs = append(subs, chatID)
	if err := writeJSONAtomic(s.subscribersPath, subs); err != nil {
		return false, err
	}
	return true, nil
}

func (s *fileStore) readSubscribersLocked() []int64 {
	b, err := os.ReadFile(s.subscribersPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", s.subscribersPath).Msg("subscribers file unreadable, treating as empty")
		}
		return nil
	}
	var subs []int64
	if err := json.Unmarshal(b, &subs); err != nil {
		s.log.Warn().Err(err).Str("path", s.subscribersPath).Msg("subscribers file corrupt, treating as empty")
		return nil
	}
	return subs
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
