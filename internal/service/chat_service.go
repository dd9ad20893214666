package service

import (
	"strings"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/metrics"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/validation"
	"github.com/google/uuid"
)

// ChatService runs premium 1:1 chats. The chat room holds at most the two
// participants' connections; the receiver's other connections are reached
// through their user id so the list badge stays live.
type ChatService struct {
	chatRepo   repository.DirectChatRepositoryInterface
	userRepo   repository.UserRepositoryInterface
	registry   *presence.Registry
	notifier   Notifier
	maxMessage int
}

func NewChatService(
	chatRepo repository.DirectChatRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	registry *presence.Registry,
	notifier Notifier,
	maxMessage int,
) *ChatService {
	if maxMessage <= 0 {
		maxMessage = 4000
	}
	return &ChatService{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		registry:   registry,
		notifier:   orNop(notifier),
		maxMessage: maxMessage,
	}
}

func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = orNop(n)
}

// SendInput is a message from senderID into an existing chat.
type SendInput struct {
	ChatID   uint
	ClientID string
	Content  string
	// Origin is the sending connection, which already shows the message.
	Origin presence.ConnID
}

// RelayInput mirrors the user-message socket event.
type RelayInput struct {
	ChatID     uint
	MessageID  uint
	ClientID   string
	Content    string
	ReceiverID uint
	Origin     presence.ConnID
}

// Open returns the chat between userID and peerID, creating it on first
// use, and deep-links the initiator's clients into it.
func (s *ChatService) Open(userID, peerID uint) (*models.DirectChat, error) {
	if err := s.requirePremium(userID); err != nil {
		return nil, err
	}
	if peerID == 0 || peerID == userID {
		return nil, fieldError("peerId", "must be another user")
	}
	if _, err := s.userRepo.FindByID(peerID); err != nil {
		return nil, notFoundOr(err)
	}
	chat, created, err := s.chatRepo.FindOrCreate(userID, peerID)
	if err != nil {
		return nil, err
	}
	if created {
		logging.Info().Uint("chat_id", chat.ID).Uint("user_id", userID).Uint("peer_id", peerID).Msg("direct chat created")
	}
	s.notifier.Emit(ToUsers(userID), events.SwitchToChat, events.SwitchToChatPayload{ChatID: chat.ID, PeerID: peerID})
	return chat, nil
}

// Send stores and delivers a message. A repeated client id returns the
// stored message without delivering it again.
func (s *ChatService) Send(senderID uint, in SendInput) (*models.DirectMessage, error) {
	if err := s.requirePremium(senderID); err != nil {
		return nil, err
	}
	chat, err := s.participantChat(senderID, in.ChatID)
	if err != nil {
		return nil, err
	}
	content := validation.TrimAndLimit(in.Content, s.maxMessage)
	if content == "" {
		return nil, fieldError("message", "is required")
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		clientID = uuid.NewString()
	} else if existing, err := s.chatRepo.FindMessageByClientID(senderID, clientID); err == nil {
		return existing, nil
	}

	receiverID := chat.Peer(senderID)
	room := events.ChatRoom(chat.ID)
	bump := !s.registry.IsActive(room, receiverID)

	msg := &models.DirectMessage{
		ChatID:   chat.ID,
		ClientID: clientID,
		SenderID: senderID,
		Content:  content,
	}
	updated, err := s.chatRepo.AppendMessage(msg, receiverID, bump)
	if err != nil {
		return nil, err
	}

	s.deliver(chat.ID, receiverID, in.Origin, msg)
	if bump {
		metrics.UnreadIncrements.WithLabelValues("chat").Inc()
		s.notifier.Emit(ToUsers(receiverID), events.ChatUnreadUpdated, events.ChatUnreadPayload{
			ChatID: chat.ID,
			Unread: updated.UnreadFor(receiverID),
		})
	}
	return msg, nil
}

// SendToPeer opens the chat with peerID if needed and sends into it.
func (s *ChatService) SendToPeer(senderID, peerID uint, in SendInput) (*models.DirectMessage, error) {
	if err := s.requirePremium(senderID); err != nil {
		return nil, err
	}
	if peerID == 0 || peerID == senderID {
		return nil, fieldError("peerId", "must be another user")
	}
	if _, err := s.userRepo.FindByID(peerID); err != nil {
		return nil, notFoundOr(err)
	}
	chat, _, err := s.chatRepo.FindOrCreate(senderID, peerID)
	if err != nil {
		return nil, err
	}
	in.ChatID = chat.ID
	return s.Send(senderID, in)
}

// Relay handles user-message. A message id re-delivers an already stored
// message (the HTTP send path stored it); otherwise the content is stored
// first.
func (s *ChatService) Relay(senderID uint, in RelayInput) (*models.DirectMessage, error) {
	if in.MessageID == 0 {
		return s.Send(senderID, SendInput{
			ChatID:   in.ChatID,
			ClientID: in.ClientID,
			Content:  in.Content,
			Origin:   in.Origin,
		})
	}
	if err := s.requirePremium(senderID); err != nil {
		return nil, err
	}
	chat, err := s.participantChat(senderID, in.ChatID)
	if err != nil {
		return nil, err
	}
	msg, err := s.chatRepo.FindMessageByID(in.MessageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if msg.ChatID != chat.ID || msg.SenderID != senderID {
		return nil, ErrForbidden
	}
	receiverID := chat.Peer(senderID)
	if in.ReceiverID != 0 && in.ReceiverID != receiverID {
		return nil, fieldError("receiverId", "is not the other participant")
	}
	s.deliver(chat.ID, receiverID, in.Origin, msg)
	return msg, nil
}

// JoinRoom subscribes conn to the chat room and clears the user's counter.
func (s *ChatService) JoinRoom(conn presence.ConnID, userID, chatID uint) error {
	if err := s.requirePremium(userID); err != nil {
		return err
	}
	if _, err := s.participantChat(userID, chatID); err != nil {
		return err
	}
	s.registry.Join(conn, events.ChatRoom(chatID))
	return s.MarkRead(userID, chatID)
}

func (s *ChatService) LeaveRoom(conn presence.ConnID, chatID uint) {
	s.registry.Leave(conn, events.ChatRoom(chatID))
}

// Typing relays a typing indicator to the other participant. Nothing is
// stored; clients expire the indicator on their own.
func (s *ChatService) Typing(conn presence.ConnID, userID, chatID uint, isTyping bool) error {
	chat, err := s.participantChat(userID, chatID)
	if err != nil {
		return err
	}
	s.notifier.Emit(Target{
		Rooms:      []events.Room{events.ChatRoom(chat.ID)},
		Users:      []uint{chat.Peer(userID)},
		Except:     conn,
		ExceptUser: userID,
	}, events.UserTyping, events.TypingPayload{
		ChatID:      chat.ID,
		UserID:      userID,
		IsTyping:    isTyping,
		ExpiresInMs: events.TypingTimeoutMs,
	})
	return nil
}

func (s *ChatService) History(userID, chatID, beforeID uint, limit int) ([]models.DirectMessage, error) {
	if err := s.requirePremium(userID); err != nil {
		return nil, err
	}
	if _, err := s.participantChat(userID, chatID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(chatID, beforeID, clampLimit(limit, 50, 100))
}

// List returns the user's chats, most recent first, with peer names.
func (s *ChatService) List(userID uint, limit int) ([]models.DirectChatResponse, error) {
	chats, err := s.chatRepo.ListForUser(userID, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, err
	}
	peerIDs := make([]uint, 0, len(chats))
	for i := range chats {
		peerIDs = append(peerIDs, chats[i].Peer(userID))
	}
	peers, err := s.userRepo.FindByIDs(peerIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(peers))
	for _, p := range peers {
		names[p.ID] = p.Name
	}

	out := make([]models.DirectChatResponse, 0, len(chats))
	for i := range chats {
		resp := chats[i].ToResponse(userID)
		resp.PeerName = names[resp.PeerID]
		out = append(out, resp)
	}
	return out, nil
}

// MarkRead zeroes the user's counter for the chat.
func (s *ChatService) MarkRead(userID, chatID uint) error {
	if _, err := s.participantChat(userID, chatID); err != nil {
		return err
	}
	if err := s.chatRepo.ResetUnread(chatID, userID); err != nil {
		return err
	}
	s.notifier.Emit(ToUsers(userID), events.ChatUnreadUpdated, events.ChatUnreadPayload{ChatID: chatID})
	return nil
}

// deliver sends new-user-message to the chat room and to every connection
// of the receiver, minus the originating connection.
func (s *ChatService) deliver(chatID, receiverID uint, origin presence.ConnID, msg *models.DirectMessage) {
	s.notifier.Emit(Target{
		Rooms:  []events.Room{events.ChatRoom(chatID)},
		Users:  []uint{receiverID},
		Except: origin,
	}, events.NewUserMessage, events.NewUserMessagePayload{
		ChatID:  chatID,
		Message: msg.ToResponse(),
	})
}

func (s *ChatService) participantChat(userID, chatID uint) (*models.DirectChat, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *ChatService) requirePremium(userID uint) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return notFoundOr(err)
	}
	if !user.CanDirectChat() {
		return ErrPremiumRequired
	}
	return nil
}
