package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisStore keeps the seen set and subscribers in Redis sets. Useful for
// platform deployments where the filesystem is ephemeral.
type redisStore struct {
	rdb *redis.Client
	log zerolog.Logger

	seenKey        string
	subscribersKey string
	firstRunKey    string
}

func openRedis(ctx context.Context, cfg Config, log zerolog.Logger) (Store, error) {
	u := strings.TrimSpace(cfg.RedisURL)
	if u == "" {
		return nil, errors.New("storage.redis_url is required for redis driver")
	}
	opts, err := redis.ParseURL(u)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", u, err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := strings.TrimSpace(cfg.Path)
	if prefix == "" {
		prefix = "ofertabot"
	}
	return &redisStore{
		rdb:            rdb,
		log:            log,
		seenKey:        prefix + ":seen",
		subscribersKey: prefix + ":subscribers",
		firstRunKey:    prefix + ":first_run",
	}, nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }

func (s *redisStore) LoadState(ctx context.Context) (State, error) {
	st := DefaultState()

	ids, err := s.rdb.SMembers(ctx, s.seenKey).Result()
	if err != nil {
		return st, err
	}
	st.SeenOfferIDs = ids

	v, err := s.rdb.Get(ctx, s.firstRunKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		st.FirstRun = true
	case err != nil:
		return st, err
	default:
		st.FirstRun = v == "1"
	}
	return st, nil
}

func (s *redisStore) SaveState(ctx context.Context, st State) error {
	if len(st.SeenOfferIDs) > 0 {
		members := make([]any, len(st.SeenOfferIDs))
		for i, id := range st.SeenOfferIDs {
			members[i] = id
		}
		if err := s.rdb.SAdd(ctx, s.seenKey, members...).Err(); err != nil {
			return err
		}
	}

	fr := "0"
	if st.FirstRun {
		fr = "1"
	}
	return s.rdb.Set(ctx, s.firstRunKey, fr, 0).Err()
}

func (s *redisStore) Subscribers(ctx context.Context) ([]int64, error) {
	members, err := s.rdb.SMembers(ctx, s.subscribersKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn().Str("member", m).Msg("skipping non-numeric subscriber entry")
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *redisStore) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	added, err := s.rdb.SAdd(ctx, s.subscribersKey, strconv.FormatInt(chatID, 10)).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}
