// Package ws serves the conversational ask endpoint over a WebSocket: every
// inbound frame is one turn, answered with a result, clarify or error frame.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/handler/api"
	xhttp "AgriPrice/pkg/http"
	"AgriPrice/pkg/http/middleware"
	xlogger "AgriPrice/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 << 10
	turnTimeout    = 45 * time.Second
)

// Message is one outbound frame. Type is result, clarify or error.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// AskHandler upgrades GET /ws/ask and answers turns sequentially per connection.
type AskHandler struct {
	logger   *xlogger.Logger
	asker    api.Asker
	limiter  middleware.Allower // optional
	upgrader websocket.Upgrader
}

// NewAskHandler allows cross-origin upgrades only from origins ("*" allows any).
func NewAskHandler(logger *xlogger.Logger, asker api.Asker, limiter middleware.Allower, origins []string) *AskHandler {
	return &AskHandler{
		logger:  logger,
		asker:   asker,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

func (h *AskHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/ask", h.Serve)
}

func (h *AskHandler) Serve(c echo.Context) error {
	client := c.RealIP()
	if h.limiter != nil && !h.limiter.Allow(client) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many connections, slow down"))
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	log := h.logger.With(xlogger.String("remote", client))
	log.Debug("websocket connected")

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go ping(ctx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", xlogger.Error(err))
			}
			log.Debug("websocket disconnected")
			return nil
		}
		msg := h.turn(ctx, client, data)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Warn("websocket write failed", xlogger.Error(err))
			return nil
		}
	}
}

// turn answers one inbound frame.
func (h *AskHandler) turn(ctx context.Context, client string, data []byte) Message {
	if h.limiter != nil && !h.limiter.Allow(client) {
		return errorMessage(xhttp.TooManyRequestsError("too many questions, slow down"))
	}
	req := &models.AskRequest{}
	if err := json.Unmarshal(data, req); err != nil {
		return errorMessage(xhttp.BadRequestError("ERR_BIND", "", "frame is not a JSON ask request"))
	}
	if verr := xhttp.Validate(ctx, req); verr != nil {
		return Message{Type: "error", Payload: verr}
	}

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()
	res, err := h.asker.Ask(ctx, req)
	if err != nil {
		appErr := api.ToAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("websocket ask failed", xlogger.Error(err))
		}
		return errorMessage(appErr)
	}
	return Message{Type: res.Type, Payload: res}
}

func errorMessage(e *xhttp.AppError) Message {
	return Message{Type: "error", Payload: []*xhttp.AppError{e}}
}

func ping(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func checkOrigin(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
