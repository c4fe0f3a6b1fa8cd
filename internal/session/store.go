// Package session keeps per-user working state in Redis: the dog a user is currently working
// on and transfers waiting for confirmation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/doogybook/backend/internal/placements"
)

const (
	keyPrefix        = "session:"
	defaultTransfer  = 15 * time.Minute
	defaultCurrentTT = 30 * 24 * time.Hour
)

// CurrentDog is the dog a user selected to work on across pages.
type CurrentDog struct {
	DogID      uuid.UUID `json:"dog_id"`
	SelectedAt time.Time `json:"selected_at"`
}

// Store is the Redis session store.
type Store struct {
	client        *redis.Client
	transferTTL   time.Duration
	currentDogTTL time.Duration
}

// NewStore creates a session store. Non-positive TTLs fall back to defaults.
func NewStore(client *redis.Client, transferTTL, currentDogTTL time.Duration) *Store {
	if transferTTL <= 0 {
		transferTTL = defaultTransfer
	}
	if currentDogTTL <= 0 {
		currentDogTTL = defaultCurrentTT
	}
	return &Store{client: client, transferTTL: transferTTL, currentDogTTL: currentDogTTL}
}

func transferKey(userID, dogID uuid.UUID) string {
	return keyPrefix + "transfer:" + userID.String() + ":" + dogID.String()
}

func currentDogKey(userID uuid.UUID) string {
	return keyPrefix + "current_dog:" + userID.String()
}

func (s *Store) load(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// Corrupt entries are dropped.
		s.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LoadTransfer returns the user's pending transfer of dogID, or nil.
func (s *Store) LoadTransfer(ctx context.Context, userID, dogID uuid.UUID) (*placements.TransferFlow, error) {
	var flow placements.TransferFlow
	ok, err := s.load(ctx, transferKey(userID, dogID), &flow)
	if err != nil || !ok {
		return nil, err
	}
	if flow.DogID != dogID {
		return nil, nil
	}
	return &flow, nil
}

// SaveTransfer stores flow for the user until the transfer TTL expires.
func (s *Store) SaveTransfer(ctx context.Context, userID uuid.UUID, flow placements.TransferFlow) error {
	return s.save(ctx, transferKey(userID, flow.DogID), flow, s.transferTTL)
}

// ClearTransfer drops the user's pending transfer of dogID.
func (s *Store) ClearTransfer(ctx context.Context, userID, dogID uuid.UUID) error {
	return s.client.Del(ctx, transferKey(userID, dogID)).Err()
}

// SetCurrentDog records dogID as the user's current dog.
func (s *Store) SetCurrentDog(ctx context.Context, userID, dogID uuid.UUID) (*CurrentDog, error) {
	cur := &CurrentDog{DogID: dogID, SelectedAt: time.Now().UTC()}
	if err := s.save(ctx, currentDogKey(userID), cur, s.currentDogTTL); err != nil {
		return nil, err
	}
	return cur, nil
}

// CurrentDog returns the user's current dog selection, or nil.
func (s *Store) CurrentDog(ctx context.Context, userID uuid.UUID) (*CurrentDog, error) {
	var cur CurrentDog
	ok, err := s.load(ctx, currentDogKey(userID), &cur)
	if err != nil || !ok {
		return nil, err
	}
	return &cur, nil
}

// ClearCurrentDog forgets the user's current dog.
func (s *Store) ClearCurrentDog(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, currentDogKey(userID)).Err()
}
