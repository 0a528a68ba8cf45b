package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantit/plantit/internal/server/handlers"
	"github.com/plantit/plantit/internal/server/jwt"
	"github.com/plantit/plantit/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorDetail {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestLogging_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	Logging(testLogger())(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRecovery_PanicBecomesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	Recovery(testLogger())(panicking).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, api.ErrCodeInternal, decodeError(t, rec).Code)
}

func TestAuth_MissingToken(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/villages", nil)

	Auth(testLogger(), tokens)(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, api.ErrCodeUnauthorized, decodeError(t, rec).Code)
}

func TestAuth_BadFormat(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/villages", nil)
	req.Header.Set("Authorization", "Basic abc")

	Auth(testLogger(), tokens)(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidTokenFillsContext(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	token, err := tokens.Generate("user-1", "gardener")
	require.NoError(t, err)

	var gotUserID, gotUsername string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = handlers.RequestUserID(r)
		gotUsername, _ = r.Context().Value(handlers.UsernameKey).(string)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/villages", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	Auth(testLogger(), tokens)(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, "gardener", gotUsername)
}

func TestAuth_ExpiredToken(t *testing.T) {
	expired := jwt.NewManager("test-secret", -time.Minute)
	token, err := expired.Generate("user-1", "gardener")
	require.NoError(t, err)

	tokens := jwt.NewManager("test-secret", time.Hour)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/villages", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	Auth(testLogger(), tokens)(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCorrelation_EchoesIncomingID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "req-42")

	Correlation()(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Correlation-Id"))
}

func TestCorrelation_GeneratesID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Correlation()(okHandler()).ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
}
