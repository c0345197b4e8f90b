// Package pricing хранит цены тарифов в документе настроек prices.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

const (
	cacheKey = "settings:prices"
	cacheTTL = time.Hour
)

// SettingsRepository хранилище документов настроек.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string, out any) (bool, error)
	MergeSetting(ctx context.Context, key string, fields map[string]any) error
}

// Cache JSON-кэш.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service читает и меняет цены.
type Service struct {
	repo  SettingsRepository
	cache Cache
	log   *slog.Logger
}

// New создаёт Service.
func New(repo SettingsRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// Get возвращает текущие цены. Незаданные поля берутся из значений по умолчанию.
func (s *Service) Get(ctx context.Context) (models.Prices, error) {
	const op = "pricing.Get"
	log := s.log.With(slog.String("op", op))

	var prices models.Prices
	found, err := s.cache.Get(ctx, cacheKey, &prices)
	if err != nil {
		log.Warn("failed to read prices from cache", sl.Err(err))
	}
	if found {
		return prices, nil
	}

	prices = models.Prices{}
	if _, err := s.repo.GetSetting(ctx, storage.SettingPrices, &prices); err != nil {
		log.Error("failed to read prices", sl.Err(err))
		return models.Prices{}, fmt.Errorf("%s: %w", op, err)
	}
	prices = withDefaults(prices)

	if err := s.cache.Set(ctx, cacheKey, prices, cacheTTL); err != nil {
		log.Warn("failed to cache prices", sl.Err(err))
	}
	return prices, nil
}

// Set сохраняет обе цены. Каждая должна быть больше нуля.
func (s *Service) Set(ctx context.Context, prices models.Prices) (models.Prices, error) {
	const op = "pricing.Set"
	log := s.log.With(slog.String("op", op))

	if prices.Weekly <= 0 || prices.Monthly <= 0 {
		return models.Prices{}, apperr.Validation("prices must be greater than 0")
	}

	err := s.repo.MergeSetting(ctx, storage.SettingPrices, map[string]any{
		"weekly":  prices.Weekly,
		"monthly": prices.Monthly,
	})
	if err != nil {
		log.Error("failed to store prices", sl.Err(err))
		return models.Prices{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
		log.Warn("failed to invalidate prices cache", sl.Err(err))
	}

	log.Info("prices updated", slog.Float64("weekly", prices.Weekly), slog.Float64("monthly", prices.Monthly))
	return prices, nil
}

func withDefaults(p models.Prices) models.Prices {
	def := models.DefaultPrices()
	if p.Weekly <= 0 {
		p.Weekly = def.Weekly
	}
	if p.Monthly <= 0 {
		p.Monthly = def.Monthly
	}
	return p
}
