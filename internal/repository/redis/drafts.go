package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftStore keeps per-session chat booking drafts. Every save renews the
// TTL, so abandoned conversations expire on their own.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{rdb: rdb, ttl: ttl}
}

// Load decodes the draft for sessionID into out and reports whether one
// existed.
func (s *DraftStore) Load(ctx context.Context, sessionID string, out any) (bool, error) {
	const op = "redisrepo.DraftStore.Load"

	b, err := s.rdb.Get(ctx, KeyChatDraft(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (s *DraftStore) Save(ctx context.Context, sessionID string, draft any) error {
	const op = "redisrepo.DraftStore.Save"

	b, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, KeyChatDraft(sessionID), string(b), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *DraftStore) Delete(ctx context.Context, sessionID string) error {
	const op = "redisrepo.DraftStore.Delete"

	if err := s.rdb.Del(ctx, KeyChatDraft(sessionID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
