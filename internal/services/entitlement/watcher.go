package entitlement

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Source выдаёт поток событий профиля для uid.
type Source interface {
	Subscribe(uid string) (<-chan models.ProfileEvent, func())
}

// ProfileReader перечитывает профиль, если событие пришло без снимка.
type ProfileReader interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
}

// Update очередное состояние для одной сессии.
type Update struct {
	Entitlement Entitlement
	Revoked     bool
}

// Watcher следит за профилем и сообщает о смене подписки и вытеснении сессии.
type Watcher struct {
	source Source
	reader ProfileReader
	now    func() time.Time
	log    *slog.Logger
}

// NewWatcher создаёт Watcher.
func NewWatcher(source Source, reader ProfileReader, log *slog.Logger) *Watcher {
	return &Watcher{source: source, reader: reader, now: time.Now, log: log}
}

// Watch сразу отдаёт текущее состояние, затем по одному Update на каждое изменение профиля.
// Revoked приходит, если профиль сменил устройство или вышел (пустой deviceId).
// После Revoked или вызова cancel последующие события игнорируются.
// onUpdate вызывается из одной горутины, cancel нельзя вызывать изнутри onUpdate.
func (w *Watcher) Watch(ctx context.Context, uid, localDeviceID string, onUpdate func(Update)) (cancel func()) {
	const op = "entitlement.Watch"
	log := w.log.With(slog.String("op", op), slog.String("uid", uid))

	events, unsubscribe := w.source.Subscribe(uid)
	ctx, stop := context.WithCancel(ctx)

	var (
		done     atomic.Bool
		stopOnce sync.Once
		finished = make(chan struct{})
	)
	teardown := func() {
		stopOnce.Do(func() {
			done.Store(true)
			stop()
			unsubscribe()
		})
	}

	emit := func(p *models.UserProfile) {
		if done.Load() {
			return
		}
		// пустой deviceId означает выход на всех устройствах
		if p != nil && (p.DeviceID == "" || CheckDevice(p.DeviceID, localDeviceID) != nil) {
			done.Store(true)
			log.Info("session revoked", slog.Bool("signed_out", p.DeviceID == ""))
			onUpdate(Update{Revoked: true})
			return
		}
		onUpdate(Update{Entitlement: Derive(p, w.now())})
	}

	go func() {
		defer close(finished)
		defer teardown()

		emit(w.read(ctx, uid, log))
		for !done.Load() {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				p := ev.Profile
				if p == nil {
					p = w.read(ctx, uid, log)
				}
				emit(p)
			}
		}
	}()

	return func() {
		teardown()
		<-finished
	}
}

// read при ошибке возвращает nil, что даёт состояние без подписки.
func (w *Watcher) read(ctx context.Context, uid string, log *slog.Logger) *models.UserProfile {
	p, err := w.reader.GetProfile(ctx, uid)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("failed to read profile, treating as unsubscribed", sl.Err(err))
		}
		return nil
	}
	return p
}
