// Package cache реализует кеширующий прокси над HTTP клиентом.
// Прокси - единственный писатель cache bucket: view-model слой и CLI
// читают данные только через него.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/plantit/plantit/internal/bus"
	clientapi "github.com/plantit/plantit/internal/client/api"
	"github.com/plantit/plantit/internal/client/storage"
	"github.com/plantit/plantit/internal/models"
)

// Generation текущее поколение формата кеша. Записи с другим поколением
// несовместимы и выбрасываются целиком при открытии.
const Generation = "cache-v1"

const (
	// maxEntries потолок записей в кеше
	maxEntries = 256
	// maxAge записи старше не отдаются и вычищаются
	maxAge = 7 * 24 * time.Hour
)

// MissOfflineError возвращается, когда сервер недоступен
// и в кеше нет ответа для запрошенного URL
type MissOfflineError struct {
	URL string
}

func (e *MissOfflineError) Error() string {
	return fmt.Sprintf("offline and no cached response for %s", e.URL)
}

// MissOfflineEvent публикуется вместе с MissOfflineError -
// UI показывает заглушку "нет связи" вместо пустого экрана
type MissOfflineEvent struct {
	URL string
}

// Result ответ прокси
type Result struct {
	// Body тело ответа (из сети или из кеша)
	Body []byte
	// ETag staleness token ответа, пустой если сервер его не прислал
	ETag string
	// FromCache true если тело взято из кеша, а не из свежего ответа
	FromCache bool
}

// Proxy выбирает политику по URL: cache-first для статики,
// network-first с fallback на кеш для view-model эндпоинтов
type Proxy struct {
	client clientapi.ClientAPI
	store  storage.CacheStorage
	missed *bus.Bus[MissOfflineEvent]
	logger *slog.Logger

	// now подменяется в тестах
	now func() time.Time
}

// New создает прокси и приводит кеш в порядок: выбрасывает записи
// чужого поколения и просроченные, затем ужимает кеш до лимита
func New(ctx context.Context, client clientapi.ClientAPI, store storage.CacheStorage, missed *bus.Bus[MissOfflineEvent], logger *slog.Logger) (*Proxy, error) {
	p := &Proxy{
		client: client,
		store:  store,
		missed: missed,
		logger: logger,
		now:    time.Now,
	}
	if err := p.sweep(ctx); err != nil {
		return nil, fmt.Errorf("failed to sweep cache: %w", err)
	}
	return p, nil
}

// cacheFirst статика не меняется между деплоями - кеш опрашивается до сети
func cacheFirst(url string) bool {
	return strings.HasPrefix(url, "/static/") || strings.HasPrefix(url, "/media/")
}

// Fetch возвращает ответ для GET url согласно политике кеширования
func (p *Proxy) Fetch(ctx context.Context, url string) (*Result, error) {
	cached, err := p.store.GetEntry(ctx, url)
	if err != nil && !errors.Is(err, storage.ErrCacheEntryNotFound) {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if cached != nil && p.expired(cached) {
		if err := p.store.DeleteEntry(ctx, url); err != nil {
			return nil, fmt.Errorf("failed to drop expired entry: %w", err)
		}
		cached = nil
	}

	if cacheFirst(url) && cached != nil {
		return &Result{Body: cached.Body, ETag: cached.ETag, FromCache: true}, nil
	}

	return p.fetchNetwork(ctx, url, cached)
}

// fetchNetwork идет в сеть с условным GET и обновляет кеш.
// При сетевой ошибке откатывается на закешированное тело, если оно есть.
func (p *Proxy) fetchNetwork(ctx context.Context, url string, cached *models.CacheEntry) (*Result, error) {
	opts := &clientapi.RequestOptions{}
	if cached != nil {
		opts.IfNoneMatch = cached.ETag
	}

	resp, err := p.client.Get(ctx, url, opts)
	if err != nil {
		if clientapi.IsNetworkError(err) {
			if cached != nil {
				p.logger.Debug("serving stale cache entry", "url", url)
				return &Result{Body: cached.Body, ETag: cached.ETag, FromCache: true}, nil
			}
			p.missed.Publish(MissOfflineEvent{URL: url})
			return nil, &MissOfflineError{URL: url}
		}
		return nil, err
	}

	if resp.NotModified && cached != nil {
		// Сервер подтвердил актуальность: тело не трогаем,
		// освежаем только отметку времени
		cached.StoredAt = p.now().UTC()
		if err := p.store.PutEntry(ctx, cached); err != nil {
			return nil, fmt.Errorf("failed to refresh cache entry: %w", err)
		}
		return &Result{Body: cached.Body, ETag: cached.ETag, FromCache: true}, nil
	}

	entry := &models.CacheEntry{
		URL:        url,
		Body:       resp.Body,
		ETag:       resp.ETag,
		Generation: Generation,
		StoredAt:   p.now().UTC(),
	}
	if err := p.store.PutEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store cache entry: %w", err)
	}
	if err := p.evict(ctx); err != nil {
		return nil, err
	}

	return &Result{Body: resp.Body, ETag: resp.ETag}, nil
}

// Invalidate выбрасывает запись для URL, например после мутации ресурса
func (p *Proxy) Invalidate(ctx context.Context, url string) error {
	err := p.store.DeleteEntry(ctx, url)
	if err != nil && !errors.Is(err, storage.ErrCacheEntryNotFound) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Clear выбрасывает весь кеш
func (p *Proxy) Clear(ctx context.Context) error {
	if err := p.store.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (p *Proxy) expired(e *models.CacheEntry) bool {
	return p.now().Sub(e.StoredAt) > maxAge
}

// sweep выполняется при открытии: смена поколения инвалидирует все,
// иначе вычищаются только просроченные записи
func (p *Proxy) sweep(ctx context.Context) error {
	entries, err := p.store.ListEntries(ctx)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Generation != Generation {
			p.logger.Info("cache generation changed, clearing cache",
				"old", e.Generation, "new", Generation)
			return p.store.ClearCache(ctx)
		}
	}

	for _, e := range entries {
		if p.expired(e) {
			if err := p.store.DeleteEntry(ctx, e.URL); err != nil {
				return err
			}
		}
	}
	return p.evict(ctx)
}

// evict ужимает кеш до maxEntries, выбрасывая самые старые записи
func (p *Proxy) evict(ctx context.Context) error {
	entries, err := p.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}
	if len(entries) <= maxEntries {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})
	for _, e := range entries[:len(entries)-maxEntries] {
		if err := p.store.DeleteEntry(ctx, e.URL); err != nil {
			return fmt.Errorf("failed to evict cache entry: %w", err)
		}
	}
	return nil
}
