// Package bus реализует типизированную шину сообщений уровня приложения.
// Вместо глобального состояния каждый экземпляр изолирован, поэтому тесты
// могут создавать свои шины. Подписка возвращает явный handle для отписки.
package bus

import "sync"

// Subscription это handle активной подписки
type Subscription struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe снимает подписку. Повторные вызовы безопасны.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

type handlerEntry[T any] struct {
	fn func(T)
	id int
}

// Bus доставляет события типа T всем активным подписчикам.
// Доставка синхронная, в порядке подписки.
type Bus[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []handlerEntry[T]
}

// New создает пустую шину
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe регистрирует обработчик и возвращает handle для отписки
func (b *Bus[T]) Subscribe(handler func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, handlerEntry[T]{fn: handler, id: id})

	return &Subscription{
		unsubscribe: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, entry := range b.handlers {
				if entry.id == id {
					b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
					return
				}
			}
		},
	}
}

// Publish синхронно доставляет событие всем подписчикам.
// Снимок обработчиков берется под mutex, сами вызовы идут без него,
// чтобы обработчик мог отписаться или опубликовать новое событие.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	snapshot := make([]func(T), 0, len(b.handlers))
	for _, entry := range b.handlers {
		snapshot = append(snapshot, entry.fn)
	}
	b.mu.Unlock()

	for _, fn := range snapshot {
		fn(event)
	}
}
