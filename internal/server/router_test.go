package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantit/plantit/internal/server/jwt"
	"github.com/plantit/plantit/internal/server/storage/sqlite"
	"github.com/plantit/plantit/pkg/api"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwt.NewManager("test-secret", time.Hour)

	srv := httptest.NewServer(NewRouter(logger, s, s, tokens, "test"))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	creds := api.RegisterRequest{Username: "gardener", Password: "secret-password"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok api.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func TestRouter_HealthIsPublic(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/villages", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var envelope api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, api.ErrCodeUnauthorized, envelope.Error.Code)
}

func TestRouter_FullFlow(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	// Создаем village
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/villages", token,
		api.VillageCreate{Name: "Balcony"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var village api.Village
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&village))

	// Сажаем растение
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/plants", token,
		api.PlantCreate{VillageID: village.ID, Name: "Ficus", Species: "Ficus lyrata"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var plant api.Plant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plant))

	// View-model экрана village содержит карточку растения и record token
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/vm/village/"+village.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))

	var vm api.VillageVM
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vm))
	require.Len(t, vm.Plants, 1)
	assert.Equal(t, plant.ID, vm.Plants[0].ID)
	assert.NotEmpty(t, vm.VillageETag)

	// Чужой токен не видит данные другого пользователя
	otherToken := registerOther(t, srv)
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/villages/"+village.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func registerOther(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	creds := api.RegisterRequest{Username: "neighbor", Password: "secret-password"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok api.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	return tok.AccessToken
}

func TestRouter_DuplicateRegistrationConflicts(t *testing.T) {
	srv := newTestServer(t)

	creds := api.RegisterRequest{Username: "gardener", Password: "secret-password"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
