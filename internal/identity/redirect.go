package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

// RedirectOptions настройки входа через редирект на Google.
type RedirectOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint переопределяет адреса Google (для тестов).
	Endpoint oauth2.Endpoint
}

// RedirectFlow серверный вход через Google OAuth.
type RedirectFlow struct {
	config   *oauth2.Config
	verifier Verifier
}

// NewRedirectFlow создаёт RedirectFlow. verifier проверяет id_token из ответа.
func NewRedirectFlow(opts RedirectOptions, verifier Verifier) *RedirectFlow {
	endpoint := opts.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &RedirectFlow{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

// Configured сообщает, заданы ли учётные данные клиента.
func (f *RedirectFlow) Configured() bool {
	return f.config.ClientID != "" && f.config.ClientSecret != "" && f.config.RedirectURL != ""
}

// AuthURL возвращает адрес страницы согласия Google.
func (f *RedirectFlow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange меняет код авторизации на токены и проверяет id_token.
func (f *RedirectFlow) Exchange(ctx context.Context, code string) (*models.Identity, error) {
	const op = "identity.RedirectFlow.Exchange"
	tok, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%s: %w: no id_token in response", op, ErrInvalidToken)
	}
	return f.verifier.Verify(ctx, raw)
}

// NewState возвращает случайное значение параметра state.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("identity.NewState: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
