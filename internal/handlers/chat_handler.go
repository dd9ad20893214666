package handlers

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type SendMessageRequest struct {
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

func (h *ChatHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	chats, err := h.chatService.List(userID, c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "chat_list_failed")
	}
	return c.JSON(chats)
}

// Open returns the chat with the peer in the path, creating it if needed.
func (h *ChatHandler) Open(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	peerID, err := httpx.ParamUint(c, "peer_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_peer_id", "Invalid peer ID")
	}
	chat, err := h.chatService.Open(userID, peerID)
	if err != nil {
		return httpx.FromError(c, err, "chat_open_failed")
	}
	return c.JSON(chat.ToResponse(userID))
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	chatID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	msgs, err := h.chatService.History(userID, chatID, uint(c.QueryInt("before_id", 0)), c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "chat_history_failed")
	}
	out := make([]models.DirectMessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].ToResponse())
	}
	return c.JSON(out)
}

// Send stores a message and delivers it to the chat room and the receiver.
// Clients reconcile their optimistic copy by client id.
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	chatID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	msg, err := h.chatService.Send(userID, service.SendInput{
		ChatID:   chatID,
		ClientID: req.ClientID,
		Content:  req.Message,
	})
	if err != nil {
		return httpx.FromError(c, err, "chat_send_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(msg.ToResponse())
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	chatID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	if err := h.chatService.MarkRead(userID, chatID); err != nil {
		return httpx.FromError(c, err, "chat_read_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
