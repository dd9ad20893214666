package repository

import (
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	EnsureExists(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
}

// GroupRepositoryInterface defines the contract for group repository operations
type GroupRepositoryInterface interface {
	Create(group *models.Group) error
	CreateBatch(groups []models.Group) error
	Update(group *models.Group) error
	Delete(id uint) error
	FindByID(id uint) (*models.Group, error)
	ListByChapter(chapter string) ([]models.Group, error)
	ListByScope(scope models.GroupScope) ([]models.Group, error)
	ListAll() ([]models.Group, error)
	AddMember(groupID, userID uint) error
	RemoveMember(groupID, userID uint) error
	IsMember(groupID, userID uint) (bool, error)
	FilterMemberGroups(userID uint, groupIDs []uint) ([]uint, error)
	GetMemberIDs(groupID uint) ([]uint, error)
	GetUserGroups(userID uint) ([]models.Group, error)
}

// LeadRepositoryInterface defines the contract for lead moderation storage
type LeadRepositoryInterface interface {
	Create(lead *models.Lead) error
	FindByID(id uint) (*models.Lead, error)
	Approve(id, adminID uint, comment string, at time.Time) (*models.Lead, error)
	Reject(id, adminID uint, comment string, at time.Time) (*models.Lead, error)
	TransitionBroadcast(id uint, from, to models.BroadcastState, at time.Time) (*models.Lead, error)
	ListApproved(groupID uint, afterSeq, beforeSeq uint64, limit int) ([]models.Lead, error)
	ListByAuthor(authorID uint, limit int) ([]models.Lead, error)
	ListByStatus(status models.LeadStatus, limit int) ([]models.Lead, error)
	ListBroadcastPending(limit int) ([]models.Lead, error)
	ListMarquee(limit int) ([]models.Lead, error)
	FindDocumentsByKey(key string) ([]models.LeadDocument, error)
}

// UnreadRepositoryInterface defines the contract for per-member group counters
type UnreadRepositoryInterface interface {
	EnsureForMember(groupID, userID uint) error
	DeleteForMember(groupID, userID uint) error
	DeleteForGroup(groupID uint) error
	IncrementExcept(groupID uint, leadType models.LeadType, exclude []uint) ([]models.GroupUnread, error)
	Reset(groupID, userID uint) error
	Get(groupID, userID uint) (*models.GroupUnread, error)
	ListByUser(userID uint) ([]models.GroupUnread, error)
}

// DirectChatRepositoryInterface defines the contract for 1:1 chat storage
type DirectChatRepositoryInterface interface {
	FindOrCreate(userA, userB uint) (*models.DirectChat, bool, error)
	FindByID(id uint) (*models.DirectChat, error)
	ListForUser(userID uint, limit int) ([]models.DirectChat, error)
	AppendMessage(msg *models.DirectMessage, receiverID uint, bumpUnread bool) (*models.DirectChat, error)
	FindMessageByID(id uint) (*models.DirectMessage, error)
	FindMessageByClientID(senderID uint, clientID string) (*models.DirectMessage, error)
	ListMessages(chatID uint, beforeID uint, limit int) ([]models.DirectMessage, error)
	ResetUnread(chatID, userID uint) error
}
