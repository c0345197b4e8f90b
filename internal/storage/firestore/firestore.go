// Package firestore реализует хранилище профилей и настроек на Cloud Firestore
// в исходной раскладке документов: users/{uid}, content/pages, config/prices.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

const usersCollection = "users"

// Store хранилище поверх клиента Firestore.
type Store struct {
	client *firestore.Client
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт Store.
func New(client *firestore.Client, log *slog.Logger) *Store {
	return &Store{client: client, log: log, now: time.Now}
}

// Close закрывает клиент.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) userDoc(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func settingDoc(client *firestore.Client, key string) *firestore.DocumentRef {
	switch key {
	case storage.SettingPages:
		return client.Collection("content").Doc("pages")
	default:
		return client.Collection("config").Doc(key)
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// UpsertProfile сливает поля входа в users/{uid}. createdAt пишется только при создании.
func (s *Store) UpsertProfile(ctx context.Context, in models.ProfileUpsert) (*models.UserProfile, error) {
	const op = "firestore.UpsertProfile"
	ref := s.userDoc(in.UID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		data := map[string]any{
			fieldUID:         in.UID,
			fieldEmail:       in.Email,
			fieldDisplayName: in.DisplayName,
			fieldPhotoURL:    in.PhotoURL,
			fieldDeviceID:    in.DeviceID,
			fieldLastLogin:   in.LastLogin.UTC(),
		}
		_, err := tx.Get(ref)
		if isNotFound(err) {
			data[fieldCreatedAt] = in.LastLogin.UTC()
		} else if err != nil {
			return err
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetProfile(ctx, in.UID)
}

// GetProfile читает профиль.
func (s *Store) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	const op = "firestore.GetProfile"
	snap, err := s.userDoc(uid).Get(ctx)
	if isNotFound(err) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := profileFromData(snap.Data())
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

// ListProfiles возвращает все профили, последние входы первыми.
func (s *Store) ListProfiles(ctx context.Context) ([]*models.UserProfile, error) {
	const op = "firestore.ListProfiles"
	iter := s.client.Collection(usersCollection).OrderBy(fieldLastLogin, firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var res []*models.UserProfile
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p := profileFromData(snap.Data())
		if p.UID == "" {
			p.UID = snap.Ref.ID
		}
		res = append(res, p)
	}
	return res, nil
}

// SetSubscription перезаписывает поле subscription. nil очищает блок.
func (s *Store) SetSubscription(ctx context.Context, uid string, sub *models.Subscription) error {
	const op = "firestore.SetSubscription"
	_, err := s.userDoc(uid).Update(ctx, []firestore.Update{
		{Path: fieldSubscription, Value: subscriptionData(sub)},
	})
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ClearDeviceID сбрасывает deviceId, только если он всё ещё равен deviceID.
func (s *Store) ClearDeviceID(ctx context.Context, uid, deviceID string) (bool, error) {
	const op = "firestore.ClearDeviceID"
	ref := s.userDoc(uid)
	cleared := false

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		cleared = false
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		current := asString(snap.Data()[fieldDeviceID])
		if current == "" || current != deviceID {
			return nil
		}
		cleared = true
		return tx.Update(ref, []firestore.Update{{Path: fieldDeviceID, Value: ""}})
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return cleared, nil
}

// GetSetting читает документ настроек в out.
func (s *Store) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	const op = "firestore.GetSetting"
	snap, err := settingDoc(s.client, key).Get(ctx)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// MergeSetting сливает поля в документ настроек.
func (s *Store) MergeSetting(ctx context.Context, key string, fields map[string]any) error {
	const op = "firestore.MergeSetting"
	doc, err := toDocument(fields)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := settingDoc(s.client, key).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Subscribe подписывается на снимки документа users/{uid}.
// Каждый снимок приходит как событие с полным профилем.
func (s *Store) Subscribe(uid string) (<-chan models.ProfileEvent, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.ProfileEvent, 4)

	go func() {
		defer close(out)
		err := s.WatchProfile(ctx, uid, func(p *models.UserProfile) {
			ev := models.ProfileEvent{UID: uid, Reason: "snapshot", Profile: p, OccurredAt: s.now()}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			s.log.Warn("profile snapshot listener stopped", slog.String("uid", uid), sl.Err(err))
		}
	}()
	return out, cancel
}

// WatchProfile вызывает fn на каждый снимок профиля, пока не отменён ctx.
// Удалённый документ передаётся как пустой профиль.
func (s *Store) WatchProfile(ctx context.Context, uid string, fn func(*models.UserProfile)) error {
	const op = "firestore.WatchProfile"
	it := s.userDoc(uid).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		if !snap.Exists() {
			fn(&models.UserProfile{UID: uid})
			continue
		}
		p := profileFromData(snap.Data())
		if p.UID == "" {
			p.UID = uid
		}
		fn(p)
	}
}
