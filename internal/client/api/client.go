package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/plantit/plantit/internal/bus"
	pkgapi "github.com/plantit/plantit/pkg/api"
)

// ConnectivityEvent публикуется при смене состояния online/offline
type ConnectivityEvent struct {
	Online bool
}

// RequestOptions дополнительные параметры запроса
type RequestOptions struct {
	// IfNoneMatch кешированный staleness token для условного GET
	IfNoneMatch string
	// IfMatch staleness token для optimistic concurrency на PATCH/DELETE
	IfMatch string
}

// Response нормализованный ответ сервера
type Response struct {
	Body []byte
	// ETag staleness token из заголовка ответа
	ETag string
	// CorrelationID идентификатор, который сервер обязан echo-нуть
	CorrelationID string
	Status        int
	// NotModified true для 304: тело не передавалось, кеш валиден
	NotModified bool
}

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет интерфейс HTTP клиента для остальных слоев
type ClientAPI interface {
	Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error)
	Post(ctx context.Context, path string, body []byte) (*Response, error)
	Patch(ctx context.Context, path string, body []byte, opts *RequestOptions) (*Response, error)
	Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error)

	// Online возвращает последнее известное состояние достижимости сервера
	Online() bool

	// CheckHealth делает пробный запрос и обновляет состояние достижимости
	CheckHealth(ctx context.Context) bool
}

// Client представляет HTTP клиент для взаимодействия с сервером.
// Сам не ретраит: retry policy принадлежит Mutation Queue.
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	connectivity *bus.Bus[ConnectivityEvent]
	baseURL      string
	authToken    atomic.Value // string
	online       atomic.Bool
}

// NewClient создает новый API клиент.
// connectivity может быть nil, тогда переходы online/offline не публикуются.
func NewClient(baseURL string, connectivity *bus.Bus[ConnectivityEvent], logger *slog.Logger) *Client {
	c := &Client{
		baseURL:      baseURL,
		connectivity: connectivity,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Ограничиваем количество редиректов и переносим Authorization
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	// До первой неудачи считаем сервер достижимым
	c.online.Store(true)
	c.authToken.Store("")
	return c
}

// SetAuthToken устанавливает bearer token для последующих запросов
func (c *Client) SetAuthToken(token string) {
	c.authToken.Store(token)
}

// Online возвращает последнее известное состояние достижимости сервера
func (c *Client) Online() bool {
	return c.online.Load()
}

// CheckHealth делает GET /api/v1/health и обновляет состояние достижимости
func (c *Client) CheckHealth(ctx context.Context) bool {
	_, err := c.Get(ctx, "/api/v1/health", nil)
	return err == nil
}

// Get выполняет GET запрос. Если opts.IfNoneMatch задан, запрос условный:
// ответ 304 возвращается с NotModified=true и пустым телом.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post выполняет POST запрос
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// Patch выполняет PATCH запрос. opts.IfMatch передает staleness token
// для обнаружения конфликта на сервере.
func (c *Client) Patch(ctx context.Context, path string, body []byte, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts)
}

// Delete выполняет DELETE запрос с опциональным If-Match
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts)
}

// do выполняет HTTP запрос и нормализует ошибки в NetworkError / HTTPError
func (c *Client) do(ctx context.Context, method, path string, body []byte, opts *RequestOptions) (*Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Correlation id для сквозной трассировки логов клиент<->сервер
	correlationID := uuid.New().String()
	req.Header.Set("X-Correlation-ID", correlationID)

	if token, _ := c.authToken.Load().(string); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if opts != nil {
		if opts.IfNoneMatch != "" {
			req.Header.Set("If-None-Match", `"`+opts.IfNoneMatch+`"`)
		}
		if opts.IfMatch != "" {
			req.Header.Set("If-Match", `"`+opts.IfMatch+`"`)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Ответа нет - считаем что offline
		c.setOnline(false)
		return nil, &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Любой ответ означает, что сервер достижим
	c.setOnline(true)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	echoed := resp.Header.Get("X-Correlation-ID")
	if echoed != "" && echoed != correlationID && c.logger != nil {
		c.logger.Debug("correlation id mismatch",
			"sent", correlationID,
			"received", echoed)
	}

	result := &Response{
		Status:        resp.StatusCode,
		Body:          respBody,
		ETag:          trimETag(resp.Header.Get("ETag")),
		CorrelationID: correlationID,
	}

	if resp.StatusCode == http.StatusNotModified {
		result.NotModified = true
		result.Body = nil
		return result, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{Status: resp.StatusCode}
		var envelope pkgapi.ErrorResponse
		if err := json.Unmarshal(respBody, &envelope); err == nil {
			httpErr.Detail = envelope.Error
		}
		return nil, httpErr
	}

	return result, nil
}

// setOnline обновляет состояние и публикует переход, если оно изменилось
func (c *Client) setOnline(online bool) {
	previous := c.online.Swap(online)
	if previous == online || c.connectivity == nil {
		return
	}

	if c.logger != nil {
		c.logger.Info("connectivity changed", "online", online)
	}
	c.connectivity.Publish(ConnectivityEvent{Online: online})
}

// trimETag убирает кавычки из значения заголовка ETag
func trimETag(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}
