package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/state"
)

const defaultKeyPrefix = "pdf-quiz:session:"

// Store keeps snapshots as JSON strings that expire ttl after the last save.
type Store struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*Store, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func New(rdb *goredis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: defaultKeyPrefix}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Load(ctx context.Context, sessionID string) (quiz.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return quiz.Snapshot{}, state.ErrNotFound
	}
	if err != nil {
		return quiz.Snapshot{}, err
	}

	var snap quiz.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return quiz.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) Save(ctx context.Context, sessionID string, snap quiz.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(sessionID), raw, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}
