package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantit/plantit/internal/bus"
	pkgapi "github.com/plantit/plantit/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080", nil, testLogger())

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.True(t, client.Online())
}

// TestClient_Get_AttachesCorrelationID проверяет, что каждый запрос
// уходит с X-Correlation-ID
func TestClient_Get_AttachesCorrelationID(t *testing.T) {
	var gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get("X-Correlation-ID")
		w.Header().Set("X-Correlation-ID", gotCorrelation)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	resp, err := client.Get(context.Background(), "/api/v1/vm/home", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, gotCorrelation)
	assert.Equal(t, gotCorrelation, resp.CorrelationID)
}

// TestClient_Get_ConditionalRequest проверяет передачу If-None-Match
// и обработку 304
func TestClient_Get_ConditionalRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"etag-1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	resp, err := client.Get(context.Background(), "/api/v1/vm/home", &RequestOptions{IfNoneMatch: "etag-1"})
	require.NoError(t, err)
	assert.True(t, resp.NotModified)
	assert.Nil(t, resp.Body)
}

// TestClient_Get_ReturnsETag проверяет извлечение staleness token из ответа
func TestClient_Get_ReturnsETag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		_, _ = w.Write([]byte(`{"villages":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	resp, err := client.Get(context.Background(), "/api/v1/vm/villages", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.ETag)
}

// TestClient_Patch_IfMatch проверяет передачу staleness token на PATCH
func TestClient_Patch_IfMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, `"v42"`, r.Header.Get("If-Match"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	_, err := client.Patch(context.Background(), "/api/v1/plants/p1", []byte(`{"name":"mint"}`), &RequestOptions{IfMatch: "v42"})
	require.NoError(t, err)
}

// TestClient_HTTPError проверяет нормализацию не-2xx ответов
func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{
			Error: pkgapi.ErrorDetail{
				Code:    pkgapi.ErrCodeValidation,
				Message: "name is required",
				Field:   "name",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	_, err := client.Post(context.Background(), "/api/v1/plants", []byte(`{}`))
	require.Error(t, err)

	assert.True(t, IsValidation(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "name is required")
}

// TestClient_Conflict проверяет классификацию 409
func TestClient_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{
			Error: pkgapi.ErrorDetail{Code: pkgapi.ErrCodeConflict, Message: "stale token"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())

	_, err := client.Delete(context.Background(), "/api/v1/plants/p1", &RequestOptions{IfMatch: "old"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
}

// TestClient_NetworkError проверяет, что отсутствие ответа дает NetworkError
// и переводит клиент в offline
func TestClient_NetworkError(t *testing.T) {
	connectivity := bus.New[ConnectivityEvent]()

	var events []ConnectivityEvent
	connectivity.Subscribe(func(e ConnectivityEvent) { events = append(events, e) })

	// Сервер сразу закрыт - соединение откажет
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := NewClient(serverURL, connectivity, testLogger())

	_, err := client.Get(context.Background(), "/api/v1/vm/home", nil)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.False(t, client.Online())

	require.Len(t, events, 1)
	assert.False(t, events[0].Online)
}

// TestClient_ConnectivityRestored проверяет публикацию перехода offline->online
func TestClient_ConnectivityRestored(t *testing.T) {
	connectivity := bus.New[ConnectivityEvent]()

	var events []ConnectivityEvent
	connectivity.Subscribe(func(e ConnectivityEvent) { events = append(events, e) })

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	// Сначала offline
	client := NewClient(deadURL, connectivity, testLogger())
	_, err := client.Get(context.Background(), "/api/v1/health", nil)
	require.Error(t, err)

	// Теперь живой сервер
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer alive.Close()

	client.baseURL = alive.URL
	assert.True(t, client.CheckHealth(context.Background()))
	assert.True(t, client.Online())

	require.Len(t, events, 2)
	assert.False(t, events[0].Online)
	assert.True(t, events[1].Online)
}

// TestClient_AuthToken проверяет передачу bearer token
func TestClient_AuthToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-xyz", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, testLogger())
	client.SetAuthToken("token-xyz")

	_, err := client.Get(context.Background(), "/api/v1/vm/home", nil)
	require.NoError(t, err)
}
