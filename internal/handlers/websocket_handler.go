package handlers

import (
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/handlers/ws"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/websocket/v2"
)

const maxFrameBytes = 64 << 10

type WebSocketHandler struct {
	hub         *ws.Hub
	presence    *service.PresenceService
	unread      *service.UnreadService
	chat        *service.ChatService
	pongTimeout time.Duration
}

func NewWebSocketHandler(hub *ws.Hub, presence *service.PresenceService, unread *service.UnreadService, chat *service.ChatService, pongTimeout time.Duration) *WebSocketHandler {
	if pongTimeout <= 0 {
		pongTimeout = 90 * time.Second
	}
	return &WebSocketHandler{
		hub:         hub,
		presence:    presence,
		unread:      unread,
		chat:        chat,
		pongTimeout: pongTimeout,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		_ = c.Close()
		return
	}

	client := h.hub.Register(userID, c)
	// The connection is released when this handler returns, so the writer
	// must be gone first.
	defer func() {
		h.hub.Unregister(client)
		<-client.WriterDone()
	}()

	c.SetReadLimit(maxFrameBytes)
	_ = c.SetReadDeadline(time.Now().Add(h.pongTimeout))
	c.SetPongHandler(func(string) error {
		client.Touch()
		h.presence.Touch(userID)
		return c.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	ctx := &ws.MessageContext{
		Client:   client,
		Hub:      h.hub,
		Presence: h.presence,
		Unread:   h.unread,
		Chat:     h.chat,
	}

	for {
		messageType, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint("user_id", userID).Msg("ws read failed")
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(h.pongTimeout))
		if messageType != websocket.TextMessage {
			ws.SendError(ctx, "invalid_message", "Only text frames are accepted", nil)
			continue
		}
		ws.Dispatch(ctx, frame)
	}
}
