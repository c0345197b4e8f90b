// Package content отдаёт премиальные страницы CMS с подстановкой
// встроенных значений по умолчанию.
package content

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

const (
	cacheKey = "settings:pages"
	cacheTTL = time.Hour
)

// ErrPageNotFound идентификатор вне page1..page5.
var ErrPageNotFound = errors.New("page not found")

//go:embed defaults/*.html
var defaultsFS embed.FS

var defaultTitles = map[string]string{
	"page1": "PEARL NUM",
	"page2": "S/M GOLD",
	"page3": "Dual core",
	"page4": "Evening bet",
	"page5": "Page 5",
}

// Page страница CMS.
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Active  bool   `json:"active"`
}

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

// Service читает и меняет страницы.
type Service struct {
	repo     SettingsRepository
	cache    Cache
	defaults models.Pages
	log      *slog.Logger
}

// New создаёт Service и загружает встроенные страницы.
func New(repo SettingsRepository, cache Cache, log *slog.Logger) (*Service, error) {
	defaults, err := DefaultPages()
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, cache: cache, defaults: defaults, log: log}, nil
}

// DefaultPages возвращает встроенные страницы page1..page5.
func DefaultPages() (models.Pages, error) {
	const op = "content.DefaultPages"
	pages := make(models.Pages, len(defaultTitles))
	for id, title := range defaultTitles {
		page := models.PageContent{Title: title}
		data, err := defaultsFS.ReadFile("defaults/" + id + ".html")
		switch {
		case err == nil:
			page.Content = string(data)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pages[id] = page
	}
	return pages, nil
}

// GetPage возвращает страницу. Сохранённое значение используется,
// только если в нём заданы и заголовок, и содержимое.
func (s *Service) GetPage(ctx context.Context, id string) (Page, error) {
	if _, ok := defaultTitles[id]; !ok {
		return Page{}, ErrPageNotFound
	}
	pages, err := s.resolve(ctx)
	if err != nil {
		return Page{}, err
	}
	return toPage(id, pages[id]), nil
}

// ListPages возвращает все пять страниц в порядке идентификаторов.
func (s *Service) ListPages(ctx context.Context) ([]Page, error) {
	pages, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]Page, 0, len(pages))
	for id, p := range pages {
		res = append(res, toPage(id, p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// SetPage перезаписывает страницу. HTML не проверяется.
func (s *Service) SetPage(ctx context.Context, id, title, content string) (Page, error) {
	const op = "content.SetPage"
	log := s.log.With(slog.String("op", op), slog.String("page", id))

	if _, ok := defaultTitles[id]; !ok {
		return Page{}, apperr.NotFound("page not found")
	}

	page := models.PageContent{Title: title, Content: content}
	if err := s.repo.MergeSetting(ctx, storage.SettingPages, map[string]any{id: page}); err != nil {
		log.Error("failed to store page", sl.Err(err))
		return Page{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
		log.Warn("failed to invalidate pages cache", sl.Err(err))
	}

	log.Info("page updated")
	return toPage(id, page), nil
}

// resolve собирает итоговый документ страниц: сохранённые значения поверх встроенных.
func (s *Service) resolve(ctx context.Context) (models.Pages, error) {
	const op = "content.resolve"
	log := s.log.With(slog.String("op", op))

	var cached models.Pages
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		log.Warn("failed to read pages from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	stored := models.Pages{}
	if _, err := s.repo.GetSetting(ctx, storage.SettingPages, &stored); err != nil {
		log.Error("failed to read pages", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	resolved := make(models.Pages, len(s.defaults))
	for id, def := range s.defaults {
		if p, ok := stored[id]; ok && p.Title != "" && p.Content != "" {
			resolved[id] = p
			continue
		}
		resolved[id] = def
	}

	if err := s.cache.Set(ctx, cacheKey, resolved, cacheTTL); err != nil {
		log.Warn("failed to cache pages", sl.Err(err))
	}
	return resolved, nil
}

func toPage(id string, p models.PageContent) Page {
	return Page{
		ID:      id,
		Title:   p.Title,
		Content: p.Content,
		Active:  p.Title != "" && p.Content != "",
	}
}
