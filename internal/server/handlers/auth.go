package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantit/plantit/internal/models"
	"github.com/plantit/plantit/internal/server/jwt"
	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/internal/validation"
	"github.com/plantit/plantit/pkg/api"
)

// AuthHandler обрабатывает регистрацию и вход
type AuthHandler struct {
	logger *slog.Logger
	users  storage.UserStorage
	tokens *jwt.Manager
}

// NewAuthHandler создает handler авторизации
func NewAuthHandler(logger *slog.Logger, users storage.UserStorage, tokens *jwt.Manager) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		users:  users,
		tokens: tokens,
	}
}

// Register обрабатывает POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			err.Error(), "username")
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		sendError(w, h.logger, http.StatusUnprocessableEntity, api.ErrCodeValidation,
			err.Error(), "password")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			sendError(w, h.logger, http.StatusConflict, api.ErrCodeConflict, "username already taken", "username")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"username", req.Username,
		"user_id", user.ID)

	sendJSON(w, h.logger, api.RegisterResponse{
		UserID:  user.ID,
		Message: "registered",
	}, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, api.ErrCodeValidation, "invalid request body", "")
		return
	}

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Не раскрываем, существует ли пользователь
			sendError(w, h.logger, http.StatusUnauthorized, api.ErrCodeUnauthorized, "invalid credentials", "")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		sendError(w, h.logger, http.StatusUnauthorized, api.ErrCodeUnauthorized, "invalid credentials", "")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate token", "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	h.logger.InfoContext(ctx, "user logged in", "username", user.Username)

	sendJSON(w, h.logger, api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
	}, http.StatusOK)
}
