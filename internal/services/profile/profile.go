// Package profile управляет профилями пользователей: вход, выход,
// выдача и отзыв подписки, чтение для админки.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

// Repository хранилище профилей.
type Repository interface {
	UpsertProfile(ctx context.Context, in models.ProfileUpsert) (*models.UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	ListProfiles(ctx context.Context) ([]*models.UserProfile, error)
	SetSubscription(ctx context.Context, uid string, sub *models.Subscription) error
	ClearDeviceID(ctx context.Context, uid, deviceID string) (bool, error)
}

// Publisher рассылает события изменения профиля.
type Publisher interface {
	Publish(ctx context.Context, event models.ProfileEvent) error
}

// TokenIssuer выпускает токен сессии.
type TokenIssuer interface {
	GenerateSession(uid, email, deviceID string) (string, error)
}

// SignInResult ответ на вход.
type SignInResult struct {
	Token       string                  `json:"token"`
	DeviceID    string                  `json:"deviceId"`
	Profile     *models.UserProfile     `json:"profile"`
	Entitlement entitlement.Entitlement `json:"entitlement"`
	IsAdmin     bool                    `json:"isAdmin"`
}

// View профиль с производным состоянием подписки.
type View struct {
	Profile     *models.UserProfile     `json:"profile"`
	Entitlement entitlement.Entitlement `json:"entitlement"`
	IsAdmin     bool                    `json:"isAdmin"`
}

// Service бизнес-логика профилей.
type Service struct {
	repo      Repository
	publisher Publisher
	tokens    TokenIssuer
	admins    *entitlement.Admins
	log       *slog.Logger

	now         func() time.Time
	newDeviceID func() string
}

// New создаёт Service.
func New(repo Repository, publisher Publisher, tokens TokenIssuer, admins *entitlement.Admins, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		publisher:   publisher,
		tokens:      tokens,
		admins:      admins,
		log:         log,
		now:         time.Now,
		newDeviceID: uuid.NewString,
	}
}

// SignIn сохраняет профиль, выдаёт новый deviceId и токен сессии.
// Прежние сессии этого аккаунта становятся недействительными.
func (s *Service) SignIn(ctx context.Context, id models.Identity) (*SignInResult, error) {
	const op = "profile.SignIn"
	log := s.log.With(slog.String("op", op), slog.String("uid", id.UID))

	if id.UID == "" {
		return nil, apperr.Unauthorized("invalid identity")
	}

	now := s.now()
	deviceID := s.newDeviceID()
	p, err := s.repo.UpsertProfile(ctx, models.ProfileUpsert{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		DeviceID:    deviceID,
		LastLogin:   now,
	})
	if err != nil {
		log.Error("failed to upsert profile", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	token, err := s.tokens.GenerateSession(p.UID, p.Email, deviceID)
	if err != nil {
		log.Error("failed to issue session token", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.publish(ctx, log, models.ReasonSignIn, p.UID, p)
	log.Info("user signed in")

	return &SignInResult{
		Token:       token,
		DeviceID:    deviceID,
		Profile:     p,
		Entitlement: entitlement.Derive(p, now),
		IsAdmin:     s.admins.IsAdmin(p.Email),
	}, nil
}

// SignOut сбрасывает deviceId, если он принадлежит этой сессии.
func (s *Service) SignOut(ctx context.Context, uid, deviceID string) error {
	const op = "profile.SignOut"
	log := s.log.With(slog.String("op", op), slog.String("uid", uid))

	cleared, err := s.repo.ClearDeviceID(ctx, uid, deviceID)
	if err != nil {
		log.Error("failed to clear device", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !cleared {
		log.Debug("device already superseded, nothing to clear")
		return nil
	}

	p, err := s.repo.GetProfile(ctx, uid)
	if err != nil {
		log.Warn("failed to reload profile after sign-out", sl.Err(err))
		p = nil
	}
	s.publish(ctx, log, models.ReasonSignOut, uid, p)
	return nil
}

// Get возвращает профиль с производным состоянием подписки.
func (s *Service) Get(ctx context.Context, uid string) (*View, error) {
	const op = "profile.Get"
	p, err := s.repo.GetProfile(ctx, uid)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	return &View{
		Profile:     p,
		Entitlement: entitlement.Derive(p, s.now()),
		IsAdmin:     s.admins.IsAdmin(p.Email),
	}, nil
}

// GetProfile возвращает профиль без обёртки. Используется наблюдателем сессии.
func (s *Service) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	return s.repo.GetProfile(ctx, uid)
}

// List возвращает все профили для админки.
func (s *Service) List(ctx context.Context) ([]*View, error) {
	const op = "profile.List"
	profiles, err := s.repo.ListProfiles(ctx)
	if err != nil {
		s.log.Error("failed to list profiles", slog.String("op", op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	now := s.now()
	res := make([]*View, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, &View{
			Profile:     p,
			Entitlement: entitlement.Derive(p, now),
			IsAdmin:     s.admins.IsAdmin(p.Email),
		})
	}
	return res, nil
}

// ActivatePayment перезаписывает подписку после оплаты.
func (s *Service) ActivatePayment(ctx context.Context, uid string, a models.Activation) (*models.UserProfile, error) {
	return s.setSubscription(ctx, "profile.ActivatePayment", models.ReasonActivated, uid, a)
}

// GrantSubscription выдаёт подписку вручную из админки.
func (s *Service) GrantSubscription(ctx context.Context, uid string, a models.Activation) (*models.UserProfile, error) {
	return s.setSubscription(ctx, "profile.GrantSubscription", models.ReasonGranted, uid, a)
}

// RevokeSubscription очищает блок подписки.
func (s *Service) RevokeSubscription(ctx context.Context, uid string) (*models.UserProfile, error) {
	const op = "profile.RevokeSubscription"
	log := s.log.With(slog.String("op", op), slog.String("uid", uid))

	if err := s.repo.SetSubscription(ctx, uid, nil); err != nil {
		log.Error("failed to revoke subscription", sl.Err(err))
		return nil, mapNotFound(op, err)
	}
	p, err := s.repo.GetProfile(ctx, uid)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	s.publish(ctx, log, models.ReasonRevoked, uid, p)
	log.Info("subscription revoked")
	return p, nil
}

func (s *Service) setSubscription(ctx context.Context, op, reason, uid string, a models.Activation) (*models.UserProfile, error) {
	log := s.log.With(slog.String("op", op), slog.String("uid", uid))

	if !a.Plan.Valid() {
		return nil, apperr.Validation("invalid plan")
	}
	if a.Currency == "" {
		a.Currency = models.CurrencyINR
	}
	sub := models.NewSubscription(a, s.now())
	if err := s.repo.SetSubscription(ctx, uid, sub); err != nil {
		log.Error("failed to store subscription", sl.Err(err))
		return nil, mapNotFound(op, err)
	}

	p, err := s.repo.GetProfile(ctx, uid)
	if err != nil {
		return nil, mapNotFound(op, err)
	}
	s.publish(ctx, log, reason, uid, p)
	log.Info("subscription stored",
		slog.String("plan", string(a.Plan)),
		slog.String("order_id", a.OrderID),
		slog.Time("expires_at", *sub.ExpiresAt),
	)
	return p, nil
}

// publish не прерывает операцию при ошибке доставки.
func (s *Service) publish(ctx context.Context, log *slog.Logger, reason, uid string, p *models.UserProfile) {
	event := models.ProfileEvent{UID: uid, Reason: reason, Profile: p, OccurredAt: s.now()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn("failed to publish profile event", slog.String("reason", reason), sl.Err(err))
	}
}

func mapNotFound(op string, err error) error {
	if errors.Is(err, storage.ErrProfileNotFound) {
		return apperr.NotFound("user not found")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
