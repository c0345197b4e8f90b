// Package identity проверяет токены входа Google и Firebase и возвращает
// личность пользователя.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Провайдеры токенов входа.
const (
	ProviderFirebase = "firebase"
	ProviderGoogle   = "google"
)

var (
	// ErrInvalidToken токен не прошёл проверку.
	ErrInvalidToken = errors.New("invalid id token")
	// ErrUnknownProvider провайдер не настроен.
	ErrUnknownProvider = errors.New("unknown identity provider")
)

// Identity проверенная личность пользователя.
type Identity = models.Identity

// Verifier проверяет сырой токен провайдера.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*models.Identity, error)
}

// Registry выбирает проверяющего по имени провайдера.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry создаёт пустой Registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

// Register добавляет проверяющего для провайдера. nil игнорируется.
func (r *Registry) Register(provider string, v Verifier) {
	if v == nil {
		return
	}
	r.verifiers[provider] = v
}

// Verify проверяет токен. Пустой provider означает firebase.
func (r *Registry) Verify(ctx context.Context, provider, rawToken string) (*models.Identity, error) {
	const op = "identity.Verify"
	if provider == "" {
		provider = ProviderFirebase
	}
	v, ok := r.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownProvider, provider)
	}
	if rawToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return v.Verify(ctx, rawToken)
}

func claimString(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
