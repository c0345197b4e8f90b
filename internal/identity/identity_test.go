package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, rawToken string) (*models.Identity, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

type fakeFirebase struct {
	token *auth.Token
	err   error
}

func (f fakeFirebase) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestRegistry_Verify(t *testing.T) {
	fb, g := new(MockVerifier), new(MockVerifier)
	fb.On("Verify", mock.Anything, "fb-token").Return(&models.Identity{UID: "fb"}, nil)
	g.On("Verify", mock.Anything, "g-token").Return(&models.Identity{UID: "g"}, nil)

	r := NewRegistry()
	r.Register(ProviderFirebase, fb)
	r.Register(ProviderGoogle, g)
	r.Register("apple", nil)

	id, err := r.Verify(context.Background(), "", "fb-token")
	require.NoError(t, err)
	assert.Equal(t, "fb", id.UID)

	id, err = r.Verify(context.Background(), ProviderGoogle, "g-token")
	require.NoError(t, err)
	assert.Equal(t, "g", id.UID)

	_, err = r.Verify(context.Background(), "apple", "x")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Verify(context.Background(), ProviderGoogle, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFirebaseVerifier_Verify(t *testing.T) {
	v := &FirebaseVerifier{client: fakeFirebase{token: &auth.Token{
		UID:    "uid-1",
		Claims: map[string]any{"email": "user@example.com", "name": "User", "picture": "https://img"},
	}}}
	id, err := v.Verify(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{UID: "uid-1", Email: "user@example.com", DisplayName: "User", PhotoURL: "https://img"}, id)

	v = &FirebaseVerifier{client: fakeFirebase{err: errors.New("expired")}}
	_, err = v.Verify(context.Background(), "raw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogleVerifier_Verify(t *testing.T) {
	tests := []struct {
		name    string
		payload *idtoken.Payload
		err     error
		want    *models.Identity
	}{
		{
			name:    "valid token",
			payload: &idtoken.Payload{Subject: "sub-1", Claims: map[string]any{"email": "a@example.com", "name": "A"}},
			want:    &models.Identity{UID: "sub-1", Email: "a@example.com", DisplayName: "A"},
		},
		{name: "validation error", err: errors.New("audience mismatch")},
		{name: "empty subject", payload: &idtoken.Payload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewGoogleVerifier("client-id")
			v.validate = func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
				assert.Equal(t, "client-id", audience)
				return tt.payload, tt.err
			}
			got, err := v.Verify(context.Background(), "raw")
			if tt.want == nil {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedirectFlow(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "google-id-token",
		})
	}))
	defer tokenServer.Close()

	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, "google-id-token").Return(&models.Identity{UID: "sub-1"}, nil)

	flow := NewRedirectFlow(RedirectOptions{
		ClientID:     "client-id",
		ClientSecret: "secret",
		RedirectURL:  "https://api.example/api/auth/google/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: tokenServer.URL},
	}, verifier)
	require.True(t, flow.Configured())

	u, err := url.Parse(flow.AuthURL("state-1"))
	require.NoError(t, err)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Contains(t, u.Query().Get("scope"), "openid")

	id, err := flow.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id.UID)

	_, err = flow.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 22)
}
