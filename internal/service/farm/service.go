package farm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/repository/session"
	"github.com/mamadbah2/farmstock/pkg/clients/backend"
)

// ErrNoActiveFarm indicates neither an active farm nor a user farm is stored.
var ErrNoActiveFarm = errors.New("no active farm selected")

// Service resolves the session's user, token and active farm.
type Service struct {
	store         session.Store
	fallbackToken string
	logger        *zap.Logger
}

// NewService wires a session-backed farm service. fallbackToken is served
// by Token when no token has been stored.
func NewService(store session.Store, fallbackToken string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, fallbackToken: fallbackToken, logger: logger}
}

// ActiveFarm returns the stored active farm, falling back to the first farm
// of the stored user.
func (s *Service) ActiveFarm(ctx context.Context) (*models.Farm, error) {
	var active models.Farm
	found, err := s.load(ctx, session.KeyActiveFarm, &active)
	if err != nil {
		return nil, err
	}
	if found && active.ID != "" {
		return &active, nil
	}

	user, err := s.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNoActiveFarm
		}
		return nil, err
	}

	if len(user.Farms) == 0 || user.Farms[0].ID == "" {
		return nil, ErrNoActiveFarm
	}

	s.logger.Debug("active farm not set, using first user farm", zap.String("farm_id", user.Farms[0].ID.String()))
	return &user.Farms[0], nil
}

// SetActiveFarm stores farm as the active farm.
func (s *Service) SetActiveFarm(ctx context.Context, farm models.Farm) error {
	if farm.ID == "" {
		return errors.New("farm id must be provided")
	}
	return s.save(ctx, session.KeyActiveFarm, farm)
}

// CurrentUser returns the stored user or session.ErrNotFound.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	found, err := s.load(ctx, session.KeyUser, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, session.ErrNotFound
	}
	return &user, nil
}

// SignIn stores the token and the user of a new session.
func (s *Service) SignIn(ctx context.Context, token string, user models.User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return backend.ErrMissingToken
	}

	if err := s.store.Set(ctx, session.KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return s.save(ctx, session.KeyUser, user)
}

// Logout clears every session key.
func (s *Service) Logout(ctx context.Context) error {
	for _, key := range []string{session.KeyToken, session.KeyUser, session.KeyActiveFarm} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	return nil
}

// Token implements backend.TokenSource.
func (s *Service) Token(ctx context.Context) (string, error) {
	raw, err := s.store.Get(ctx, session.KeyToken)
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("load token: %w", err)
	default:
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
	}

	if s.fallbackToken != "" {
		return s.fallbackToken, nil
	}
	return "", backend.ErrMissingToken
}

func (s *Service) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Error("corrupt session entry", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("decode session %s: %w", key, err)
	}
	return true, nil
}

func (s *Service) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("store session %s: %w", key, err)
	}
	return nil
}
