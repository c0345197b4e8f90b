// Package pubsub доставляет события изменения профиля подписчикам по uid:
// внутри процесса через Hub и между экземплярами через redis Pub/Sub.
package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// DefaultBuffer размер буфера канала одного подписчика.
const DefaultBuffer = 8

type subscriber struct {
	ch chan models.ProfileEvent
}

// Hub рассылает события подписчикам одного uid. Медленный подписчик теряет
// события, а не блокирует публикацию.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	log    *slog.Logger
}

// NewHub создаёт Hub.
func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe регистрирует подписчика на события uid.
// Возвращённая функция отписывает и закрывает канал, её можно вызывать повторно.
func (h *Hub) Subscribe(uid string) (<-chan models.ProfileEvent, func()) {
	sub := &subscriber{ch: make(chan models.ProfileEvent, h.buffer)}

	h.mu.Lock()
	if h.subs[uid] == nil {
		h.subs[uid] = make(map[*subscriber]struct{})
	}
	h.subs[uid][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[uid], sub)
			if len(h.subs[uid]) == 0 {
				delete(h.subs, uid)
			}
			close(sub.ch)
			h.mu.Unlock()
		})
	}
}

// Publish доставляет событие локальным подписчикам.
func (h *Hub) Publish(_ context.Context, event models.ProfileEvent) error {
	h.Deliver(event)
	return nil
}

// Deliver рассылает событие без блокировки.
func (h *Hub) Deliver(event models.ProfileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.UID] {
		select {
		case sub.ch <- event:
		default:
			h.log.Warn("dropping profile event for slow subscriber",
				slog.String("uid", event.UID),
				slog.String("reason", event.Reason),
			)
		}
	}
}

// Subscribers возвращает число подписчиков uid.
func (h *Hub) Subscribers(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[uid])
}
