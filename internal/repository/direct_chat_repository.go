package repository

import (
	"errors"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DirectChatRepository struct {
	db *gorm.DB
}

func NewDirectChatRepository(db *gorm.DB) *DirectChatRepository {
	return &DirectChatRepository{db: db}
}

// FindOrCreate returns the chat for the pair, creating it on first use.
// The bool is true when this call created the row.
func (r *DirectChatRepository) FindOrCreate(userA, userB uint) (*models.DirectChat, bool, error) {
	a, b := models.OrderedPair(userA, userB)
	chat := models.DirectChat{UserAID: a, UserBID: b}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&chat)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &chat, true, nil
	}

	var existing models.DirectChat
	if err := r.db.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *DirectChatRepository) FindByID(id uint) (*models.DirectChat, error) {
	var chat models.DirectChat
	if err := r.db.First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *DirectChatRepository) ListForUser(userID uint, limit int) ([]models.DirectChat, error) {
	var chats []models.DirectChat
	err := r.db.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST, id DESC").
		Limit(limit).
		Find(&chats).Error
	return chats, err
}

// AppendMessage stores msg, refreshes the chat's last-message cache and,
// when bumpUnread is set, increments the receiver's counter.
func (r *DirectChatRepository) AppendMessage(msg *models.DirectMessage, receiverID uint, bumpUnread bool) (*models.DirectChat, error) {
	var chat models.DirectChat
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&chat, msg.ChatID).Error; err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_message_id":        msg.ID,
			"last_message_content":   msg.Content,
			"last_message_sender_id": msg.SenderID,
			"last_message_at":        msg.CreatedAt,
		}
		if bumpUnread {
			col := "unread_b"
			if receiverID == chat.UserAID {
				col = "unread_a"
			}
			updates[col] = gorm.Expr(col + " + 1")
		}
		if err := tx.Model(&chat).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&chat, chat.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *DirectChatRepository) FindMessageByID(id uint) (*models.DirectMessage, error) {
	var msg models.DirectMessage
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *DirectChatRepository) FindMessageByClientID(senderID uint, clientID string) (*models.DirectMessage, error) {
	var msg models.DirectMessage
	if err := r.db.Where("sender_id = ? AND client_id = ?", senderID, clientID).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns up to limit messages older than beforeID, newest
// first. A zero beforeID starts from the latest message.
func (r *DirectChatRepository) ListMessages(chatID uint, beforeID uint, limit int) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	q := r.db.Where("chat_id = ?", chatID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	err := q.Order("id DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

func (r *DirectChatRepository) ResetUnread(chatID, userID uint) error {
	var chat models.DirectChat
	if err := r.db.Select("id", "user_a_id", "user_b_id").First(&chat, chatID).Error; err != nil {
		return err
	}
	col := ""
	switch userID {
	case chat.UserAID:
		col = "unread_a"
	case chat.UserBID:
		col = "unread_b"
	default:
		return errors.New("user is not a participant")
	}
	return r.db.Model(&models.DirectChat{}).Where("id = ?", chatID).Update(col, 0).Error
}
