package models

import "time"

// CacheEntry представляет закешированный ответ на ранее виденный GET.
// Пишется только Cache Proxy - единственным писателем cache bucket.
type CacheEntry struct {
	StoredAt   time.Time `json:"stored_at"`
	URL        string    `json:"url"`
	ETag       string    `json:"etag"` // staleness token, выданный сервером
	Generation string    `json:"generation"`
	Body       []byte    `json:"body"`
}

// Clone создает глубокую копию записи кеша
func (e *CacheEntry) Clone() *CacheEntry {
	body := make([]byte, len(e.Body))
	copy(body, e.Body)

	clone := *e
	clone.Body = body
	return &clone
}
