package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/plantit/plantit/pkg/api"
)

// NetworkError означает, что ответ не был получен вовсе - скорее всего offline.
// Такие ошибки не показываются пользователю напрямую: мутация уходит в очередь.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError означает, что сервер ответил не-2xx статусом.
// Detail заполняется из envelope {"error":{code,message,field}} если сервер его прислал.
type HTTPError struct {
	Detail api.ErrorDetail
	Status int
}

func (e *HTTPError) Error() string {
	if e.Detail.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// IsNetworkError reports whether err is a transport-level failure (offline)
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsConflict reports whether err is a staleness-token conflict (409/412)
func IsConflict(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.Status == http.StatusConflict || httpErr.Status == http.StatusPreconditionFailed
}

// IsValidation reports whether err is a permanent client-side failure:
// любой 4xx кроме конфликта. Такие ошибки требуют немедленного rollback.
func IsValidation(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if IsConflict(err) {
		return false
	}
	return httpErr.Status >= 400 && httpErr.Status < 500
}
