// Package sessionws передаёт клиенту состояние подписки по websocket и
// сообщает о вытеснении сессии входом с другого устройства.
package sessionws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/wingoboss/wingoboss-api/internal/http/middlewarectx"
	"github.com/wingoboss/wingoboss-api/internal/http/response"
	"github.com/wingoboss/wingoboss-api/internal/lib/jwt"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/metrics"
	"github.com/wingoboss/wingoboss-api/internal/services/entitlement"
)

// Типы кадров.
const (
	FrameEntitlement    = "entitlement"
	FrameSessionRevoked = "session_revoked"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 512
)

// Frame кадр, отправляемый клиенту. Поля Entitlement разворачиваются в корень.
type Frame struct {
	Type string `json:"type"`
	*entitlement.Entitlement
}

// TokenParser разбирает JWT сессии.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.SessionClaims, error)
}

// Watcher подписывает сессию на изменения профиля.
type Watcher interface {
	Watch(ctx context.Context, uid, localDeviceID string, onUpdate func(entitlement.Update)) (cancel func())
}

// Handler обрабатывает GET /api/session/ws.
type Handler struct {
	log      *slog.Logger
	tokens   TokenParser
	watcher  Watcher
	upgrader websocket.Upgrader
}

// New создаёт Handler.
func New(log *slog.Logger, tokens TokenParser, watcher Watcher) *Handler {
	return &Handler{
		log:     log,
		tokens:  tokens,
		watcher: watcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP godoc
// @Summary Поток состояния сессии
// @Description Websocket: кадры {"type":"entitlement",...} при каждом изменении профиля и {"type":"session_revoked"} при входе с другого устройства
// @Tags Auth
// @Param token query string false "JWT сессии, если нельзя передать заголовок"
// @Success 101
// @Failure 401 {object} response.ErrorResponse "Нет или неверный токен"
// @Router /session/ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sessionws"
	log := h.log.With(slog.String("op", op))

	claims, err := h.tokens.ParseToken(middlewarectx.BearerToken(r))
	if err != nil || claims.UID == "" || claims.IsAdmin() {
		log.Warn("rejected session stream", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	log = log.With(slog.String("uid", claims.UID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}
	metrics.SessionStreams.Inc()
	defer metrics.SessionStreams.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	updates := make(chan entitlement.Update, 1)
	stop := h.watcher.Watch(ctx, claims.UID, claims.DeviceID, func(u entitlement.Update) {
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	})
	defer func() {
		cancel()
		stop()
		_ = conn.Close()
	}()

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			if u.Revoked {
				_ = writeFrame(conn, Frame{Type: FrameSessionRevoked})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, middlewarectx.MsgSuperseded),
					time.Now().Add(writeWait))
				log.Info("session revoked, stream closed")
				return
			}
			ent := u.Entitlement
			if err := writeFrame(conn, Frame{Type: FrameEntitlement, Entitlement: &ent}); err != nil {
				log.Debug("write failed", sl.Err(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

// readPump читает кадры клиента ради pong и закрытия соединения.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
