package identity

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier проверяет ID-токены Google: токены Android-расширения
// и токены, полученные при входе через редирект.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier создаёт проверяющего для OAuth-клиента clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify проверяет подпись, срок и аудиторию токена.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*models.Identity, error) {
	const op = "identity.GoogleVerifier.Verify"
	payload, err := v.validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%s: %w: empty subject", op, ErrInvalidToken)
	}
	return &models.Identity{
		UID:         payload.Subject,
		Email:       claimString(payload.Claims, "email"),
		DisplayName: claimString(payload.Claims, "name"),
		PhotoURL:    claimString(payload.Claims, "picture"),
	}, nil
}
