package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/wingoboss/wingoboss-api/internal/config"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// NewFirebaseApp инициализирует приложение Firebase. Без файла учётных данных
// используются учётные данные окружения.
func NewFirebaseApp(ctx context.Context, cfg config.Auth) (*firebase.App, error) {
	const op = "identity.NewFirebaseApp"
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return app, nil
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier проверяет ID-токены Firebase из всплывающего окна входа.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier создаёт проверяющего поверх клиента Firebase Auth.
func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	const op = "identity.NewFirebaseVerifier"
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify проверяет токен и извлекает личность.
func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (*models.Identity, error) {
	const op = "identity.FirebaseVerifier.Verify"
	tok, err := v.client.VerifyIDToken(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	return &models.Identity{
		UID:         tok.UID,
		Email:       claimString(tok.Claims, "email"),
		DisplayName: claimString(tok.Claims, "name"),
		PhotoURL:    claimString(tok.Claims, "picture"),
	}, nil
}
