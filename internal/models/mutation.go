package models

import (
	"fmt"
	"time"
)

// Статусы записи в очереди мутаций
const (
	MutationStatusPending  = "pending"   // ждет replay
	MutationStatusInFlight = "in-flight" // отправляется прямо сейчас
	MutationStatusFailed   = "failed"    // исчерпаны попытки или конфликт, нужно ручное решение
)

// MutationMetadata свободные теги мутации.
// Подписчики используют их, чтобы понять какой экран и какой ресурс
// затронул успешный replay.
type MutationMetadata struct {
	Action     string `json:"action"`      // имя действия, например "plant.create"
	Resource   string `json:"resource"`    // тип ресурса: village | plant | task | photo
	ResourceID string `json:"resource_id"` // id ресурса (временный для create)
}

// QueuedMutation представляет durable запись о неподтвержденной мутации.
// Создается когда мутация не может завершиться синхронно (offline),
// удаляется при успешном replay.
type QueuedMutation struct {
	CreatedAt time.Time `json:"created_at"` // логический ключ упорядочивания

	ID     string `json:"id"`     // UUID записи очереди (не id ресурса)
	Method string `json:"method"` // POST | PATCH | DELETE
	Path   string `json:"path"`   // путь ресурса, например /api/v1/plants/{id}

	Body              []byte           `json:"body,omitempty"`               // сериализованный payload
	Metadata          MutationMetadata `json:"metadata"`                     // теги для подписчиков
	OptimisticPayload []byte           `json:"optimistic_payload,omitempty"` // значение, примененное к локальному состоянию
	StalenessToken    string           `json:"staleness_token,omitempty"`    // ETag ресурса на момент оптимистичного патча

	Attempts int    `json:"attempts"` // количество сделанных попыток replay
	Status   string `json:"status"`   // pending | in-flight | failed
	LastErr  string `json:"last_err,omitempty"`
}

// QueueKey возвращает ключ для bbolt bucket.
// Zero-padded наносекунды + id гарантируют, что порядок итерации по ключам
// совпадает с порядком создания.
func (m *QueuedMutation) QueueKey() []byte {
	return []byte(fmt.Sprintf("%020d-%s", m.CreatedAt.UnixNano(), m.ID))
}

// Clone создает глубокую копию записи очереди
func (m *QueuedMutation) Clone() *QueuedMutation {
	body := make([]byte, len(m.Body))
	copy(body, m.Body)

	optimistic := make([]byte, len(m.OptimisticPayload))
	copy(optimistic, m.OptimisticPayload)

	clone := *m
	clone.Body = body
	clone.OptimisticPayload = optimistic
	return &clone
}
