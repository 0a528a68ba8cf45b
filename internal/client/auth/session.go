// Package auth управляет сессией клиента: login, register,
// восстановление сохраненной сессии при старте и logout.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/storage"
	pkgapi "github.com/plantit/plantit/pkg/api"
)

// ErrSessionExpired возвращается когда сохраненный токен уже просрочен
var ErrSessionExpired = errors.New("session expired")

// ErrNotAuthenticated возвращается когда сохраненной сессии нет
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSetter устанавливает Bearer токен на HTTP клиенте
type TokenSetter interface {
	SetAuthToken(token string)
}

// Service управляет жизненным циклом сессии клиента.
// Полученный при login токен сохраняется в локальное хранилище,
// чтобы при следующем запуске не спрашивать пароль заново.
type Service struct {
	client clientapi.ClientAPI
	tokens TokenSetter
	store  storage.AuthStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewService создает сервис сессии
func NewService(client clientapi.ClientAPI, tokens TokenSetter, store storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		tokens: tokens,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register регистрирует нового пользователя и сразу логинит его
func (s *Service) Register(ctx context.Context, username, password string) (*storage.Session, error) {
	body, err := json.Marshal(pkgapi.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal register request: %w", err)
	}

	resp, err := s.client.Post(ctx, "/api/v1/auth/register", body)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	var reg pkgapi.RegisterResponse
	if err := json.Unmarshal(resp.Body, &reg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal register response: %w", err)
	}
	s.logger.Info("user registered", "username", username)

	session, err := s.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// Login не возвращает user id, берем его из ответа регистрации
	session.UserID = reg.UserID
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Login аутентифицирует пользователя и сохраняет сессию
func (s *Service) Login(ctx context.Context, username, password string) (*storage.Session, error) {
	body, err := json.Marshal(pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	resp, err := s.client.Post(ctx, "/api/v1/auth/login", body)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	var tok pkgapi.TokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	session := &storage.Session{
		Username:    username,
		AccessToken: tok.AccessToken,
		ExpiresAt:   s.now().Unix() + tok.ExpiresIn,
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.tokens.SetAuthToken(session.AccessToken)

	s.logger.Info("logged in", "username", username)
	return session, nil
}

// Restore поднимает сохраненную сессию при старте клиента.
// Возвращает ErrNotAuthenticated если сессии нет
// и ErrSessionExpired если токен уже просрочен.
func (s *Service) Restore(ctx context.Context) (*storage.Session, error) {
	session, err := s.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.ExpiresAt <= s.now().Unix() {
		// Просроченную сессию сразу убираем, чтобы не спотыкаться о нее снова
		if err := s.store.DeleteSession(ctx); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	s.tokens.SetAuthToken(session.AccessToken)
	return session, nil
}

// Logout удаляет сохраненную сессию и сбрасывает токен клиента
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.tokens.SetAuthToken("")

	s.logger.Info("logged out")
	return nil
}

// IsAuthenticated сообщает, есть ли живая сохраненная сессия
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	session, err := s.store.GetSession(ctx)
	if err != nil {
		return false
	}
	return session.ExpiresAt > s.now().Unix()
}
