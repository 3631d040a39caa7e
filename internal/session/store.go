package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"drivepower/console/internal/models"
	"drivepower/console/internal/storage"
)

// Persisted keys.
const (
	KeyAccessToken  = "adminToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// ErrParseFailure marks a stored user record that could not be decoded.
var ErrParseFailure = errors.New("session: stored user is unreadable")

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Store persists the session in durable key-value storage.
type Store struct {
	kv     storage.KV
	logger *zap.Logger
}

// NewStore returns a session store over kv.
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

// Load reads the persisted session. An unreadable user record or a corrupt
// backing document wipes all keys and yields an empty session without error.
func (s *Store) Load(ctx context.Context) (models.Session, error) {
	sess, err := s.load(ctx)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrParseFailure) && !errors.Is(err, storage.ErrCorrupt) {
		return models.Session{}, err
	}

	s.logger.Warn("stored session is unreadable, clearing it", zap.Error(err))
	if clearErr := s.Clear(ctx); clearErr != nil {
		return models.Session{}, clearErr
	}
	return models.Session{}, nil
}

func (s *Store) load(ctx context.Context) (models.Session, error) {
	token, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return models.Session{}, err
	}
	refresh, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return models.Session{}, err
	}
	rawUser, hasUser, err := s.lookup(ctx, KeyUser)
	if err != nil {
		return models.Session{}, err
	}

	var user *models.User
	if hasUser {
		if user, err = decodeUser(rawUser); err != nil {
			return models.Session{}, err
		}
	}

	sess := models.Session{RefreshToken: refresh}
	if token != "" && user != nil {
		sess.AccessToken = token
		sess.User = user
	}
	return sess, nil
}

// SaveLogin persists a fresh login. The refresh token is written only when present.
func (s *Store) SaveLogin(ctx context.Context, user models.User, accessToken, refreshToken string) error {
	if accessToken == "" {
		return errors.New("session: access token is empty")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.kv.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := s.kv.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	return s.kv.Set(ctx, KeyUser, string(encoded))
}

// SaveAccessToken replaces only the access token.
func (s *Store) SaveAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session: access token is empty")
	}
	return s.kv.Set(ctx, KeyAccessToken, token)
}

// AccessToken returns the stored access token or "".
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

// RefreshToken returns the stored refresh token or "".
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

// Clear removes every persisted session key.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, allKeys...)
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, _, err := s.lookup(ctx, key)
	return v, err
}

func (s *Store) lookup(ctx context.Context, key string) (string, bool, error) {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session: read %s: %w", key, err)
	}
	return v, true, nil
}

func decodeUser(raw string) (*models.User, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrParseFailure
	}
	var user models.User
	if err := json.Unmarshal(trimmed, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return &user, nil
}
