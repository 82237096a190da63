package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/models"
)

// ErrNoSession is returned when a token has no bound session state.
var ErrNoSession = errors.New("session not found")

const maxPreferenceRetries = 5

// Preferences are the per-user layout settings.
type Preferences struct {
	SidebarOpen      bool `json:"sidebarOpen"`
	SidebarCollapsed bool `json:"sidebarCollapsed"`
}

// PreferencesPatch updates preferences. Toggle accepts "sidebar" or "collapsed"
// and is applied after the explicit values.
type PreferencesPatch struct {
	SidebarOpen      *bool  `json:"sidebarOpen,omitempty"`
	SidebarCollapsed *bool  `json:"sidebarCollapsed,omitempty"`
	Toggle           string `json:"toggle,omitempty" validate:"omitempty,oneof=sidebar collapsed"`
}

// Apply returns p with the patch applied.
func (patch PreferencesPatch) Apply(p Preferences) Preferences {
	if patch.SidebarOpen != nil {
		p.SidebarOpen = *patch.SidebarOpen
	}
	if patch.SidebarCollapsed != nil {
		p.SidebarCollapsed = *patch.SidebarCollapsed
	}
	switch patch.Toggle {
	case "sidebar":
		p.SidebarOpen = !p.SidebarOpen
	case "collapsed":
		p.SidebarCollapsed = !p.SidebarCollapsed
	}
	return p
}

// Store keeps session and UI state in redis. Tokens are only stored hashed.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStore builds a store whose entries expire after ttl.
func NewStore(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "arena"
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// TTL returns the lifetime of session entries.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// HashToken returns the hex sha256 digest used to key a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Store) tokenKey(token string) string {
	return s.prefix + ":session:" + HashToken(token)
}

func (s *Store) profileKey(userID string) string {
	return s.prefix + ":profile:" + userID
}

func (s *Store) preferencesKey(userID string) string {
	return s.prefix + ":preferences:" + userID
}

// Bind associates token with user and stores the profile.
func (s *Store) Bind(ctx context.Context, token string, user models.User) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("token and user id are required")
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(token), user.ID, s.ttl)
		pipe.Set(ctx, s.profileKey(user.ID), payload, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	return nil
}

// UserID resolves the user bound to token.
func (s *Store) UserID(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return userID, nil
}

// Profile returns the cached profile of userID.
func (s *Store) Profile(ctx context.Context, userID string) (models.User, error) {
	raw, err := s.client.Get(ctx, s.profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.User{}, ErrNoSession
	}
	if err != nil {
		return models.User{}, fmt.Errorf("read profile: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return models.User{}, fmt.Errorf("decode profile: %w", err)
	}
	return user, nil
}

// SetProfile replaces the cached profile of user.
func (s *Store) SetProfile(ctx context.Context, user models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.client.Set(ctx, s.profileKey(user.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Preferences returns the stored preferences or the defaults.
func (s *Store) Preferences(ctx context.Context, userID string) (Preferences, error) {
	raw, err := s.client.Get(ctx, s.preferencesKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Preferences{}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences applies patch atomically, retrying on concurrent writes.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, patch PreferencesPatch) (Preferences, error) {
	key := s.preferencesKey(userID)
	var updated Preferences

	txn := func(tx *redis.Tx) error {
		current := Preferences{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode preferences: %w", err)
			}
		}

		updated = patch.Apply(current)
		payload, err := json.Marshal(updated)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPreferenceRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return Preferences{}, fmt.Errorf("update preferences: %w", err)
		}
		s.logger.Debug().Str("user_id", userID).Int("attempt", attempt+1).Msg("preferences write conflict, retrying")
	}
	return Preferences{}, fmt.Errorf("update preferences: too many concurrent writes")
}

// Drop removes the token binding and the cached profile. Preferences survive logout.
func (s *Store) Drop(ctx context.Context, token string) error {
	userID, err := s.UserID(ctx, token)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}

	keys := []string{s.tokenKey(token)}
	if userID != "" {
		keys = append(keys, s.profileKey(userID))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	return nil
}
