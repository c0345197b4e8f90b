package sessionws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
)

type tokenParserFunc func(string) (*jwt.SessionClaims, error)

func (f tokenParserFunc) ParseToken(s string) (*jwt.SessionClaims, error) { return f(s) }

type fakeWatcher struct {
	updates []entitlement.Update
	seen    chan [2]string
}

func (f *fakeWatcher) Watch(ctx context.Context, uid, deviceID string, onUpdate func(entitlement.Update)) func() {
	f.seen <- [2]string{uid, deviceID}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, u := range f.updates {
			onUpdate(u)
		}
		<-ctx.Done()
	}()
	return func() { <-done }
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func validTokens(raw string) (*jwt.SessionClaims, error) {
	if raw != "good" {
		return nil, errors.New("bad token")
	}
	return &jwt.SessionClaims{UID: "uid-1", DeviceID: "device-1", Role: jwt.RoleUser}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestSessionStream_EntitlementThenRevoked(t *testing.T) {
	expires := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)
	w := &fakeWatcher{
		updates: []entitlement.Update{
			{Entitlement: entitlement.Entitlement{IsSubscribed: true, Plan: models.PlanMonthly, ExpiresAt: &expires}},
			{Revoked: true},
		},
		seen: make(chan [2]string, 1),
	}
	srv := httptest.NewServer(New(newNoopLogger(), tokenParserFunc(validTokens), w))
	defer srv.Close()

	conn, _, err := dial(t, srv, "good")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, [2]string{"uid-1", "device-1"}, <-w.seen)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, FrameEntitlement, first["type"])
	assert.Equal(t, true, first["isSubscribed"])
	assert.Equal(t, "monthly", first["plan"])

	var second map[string]any
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, map[string]any{"type": FrameSessionRevoked}, second)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestSessionStream_RejectsBadToken(t *testing.T) {
	w := &fakeWatcher{seen: make(chan [2]string, 1)}
	srv := httptest.NewServer(New(newNoopLogger(), tokenParserFunc(validTokens), w))
	defer srv.Close()

	_, resp, err := dial(t, srv, "forged")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, w.seen)
}

func TestSessionStream_RejectsAdminToken(t *testing.T) {
	w := &fakeWatcher{seen: make(chan [2]string, 1)}
	admin := tokenParserFunc(func(string) (*jwt.SessionClaims, error) {
		return &jwt.SessionClaims{Role: jwt.RoleAdmin}, nil
	})
	srv := httptest.NewServer(New(newNoopLogger(), admin, w))
	defer srv.Close()

	_, resp, err := dial(t, srv, "admin")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
