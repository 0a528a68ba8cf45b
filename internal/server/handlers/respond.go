package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/plantit/plantit/internal/etag"
	"github.com/plantit/plantit/internal/server/storage"
	"github.com/plantit/plantit/pkg/api"
)

// contextKey тип для ключей контекста запроса
type contextKey string

// Ключи контекста, проставляемые auth middleware
const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// RequestUserID возвращает id аутентифицированного пользователя
func RequestUserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

// sendJSON пишет JSON ответ с указанным статусом
func sendJSON(w http.ResponseWriter, logger *slog.Logger, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// sendError пишет envelope ошибки {"error":{code,message,field}}
func sendError(w http.ResponseWriter, logger *slog.Logger, status int, code, message, field string) {
	resp := api.ErrorResponse{Error: api.ErrorDetail{
		Code:    code,
		Message: message,
		Field:   field,
	}}
	sendJSON(w, logger, resp, status)
}

// errorIsNotFound сообщает, является ли ошибка одной из sentinel "не найдено"
func errorIsNotFound(err error) bool {
	return errors.Is(err, storage.ErrVillageNotFound) ||
		errors.Is(err, storage.ErrPlantNotFound) ||
		errors.Is(err, storage.ErrTaskNotFound) ||
		errors.Is(err, storage.ErrPhotoNotFound)
}

// normalizeMatch убирает кавычки и W/ префикс из значения условного заголовка
func normalizeMatch(value string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), "W/")
	return strings.Trim(value, `"`)
}

// respondWithETag считает staleness token payload-а и отвечает с ETag
// заголовком. Если клиент прислал совпадающий If-None-Match - 304 без тела.
func respondWithETag(w http.ResponseWriter, r *http.Request, logger *slog.Logger, payload any, status int) {
	token, err := etag.Compute(payload)
	if err != nil {
		logger.Error("failed to compute etag", "error", err)
		sendError(w, logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return
	}

	w.Header().Set("ETag", `"`+token+`"`)

	if match := r.Header.Get("If-None-Match"); match != "" && normalizeMatch(match) == token {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	sendJSON(w, logger, payload, status)
}

// checkIfMatch сверяет If-Match запроса с текущим staleness token ресурса.
// При расхождении отвечает 409 CONFLICT и возвращает false.
// Отсутствие заголовка трактуется как согласие на last-write-wins.
func checkIfMatch(w http.ResponseWriter, r *http.Request, logger *slog.Logger, current any) bool {
	match := r.Header.Get("If-Match")
	if match == "" {
		return true
	}

	token, err := etag.Compute(current)
	if err != nil {
		logger.Error("failed to compute etag", "error", err)
		sendError(w, logger, http.StatusInternalServerError, api.ErrCodeInternal, "internal server error", "")
		return false
	}

	if normalizeMatch(match) != token {
		sendError(w, logger, http.StatusConflict, api.ErrCodeConflict,
			"resource was modified since it was loaded", "")
		return false
	}
	return true
}
