package repository

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
)

type UnreadRepository struct {
	db *gorm.DB
}

func NewUnreadRepository(db *gorm.DB) *UnreadRepository {
	return &UnreadRepository{db: db}
}

func (r *UnreadRepository) EnsureForMember(groupID, userID uint) error {
	return r.db.Exec(`
		INSERT INTO group_unreads (group_id, user_id, unread_buy_count, unread_sell_count, updated_at)
		VALUES (?, ?, 0, 0, NOW())
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID).Error
}

func (r *UnreadRepository) DeleteForMember(groupID, userID uint) error {
	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupUnread{}).Error
}

func (r *UnreadRepository) DeleteForGroup(groupID uint) error {
	return r.db.Where("group_id = ?", groupID).Delete(&models.GroupUnread{}).Error
}

// IncrementExcept bumps the counter matching leadType for every member of
// the group whose id is not in exclude, and returns the updated rows.
func (r *UnreadRepository) IncrementExcept(groupID uint, leadType models.LeadType, exclude []uint) ([]models.GroupUnread, error) {
	buy, sell := 0, 0
	if leadType == models.LeadBuy {
		buy = 1
	} else {
		sell = 1
	}

	query := `
		INSERT INTO group_unreads (group_id, user_id, unread_buy_count, unread_sell_count, updated_at)
		SELECT gm.group_id, gm.user_id, ?, ?, NOW()
		FROM group_members gm
		WHERE gm.group_id = ?`
	args := []interface{}{buy, sell, groupID}
	// NOT IN () is a syntax error, so the filter is only added when needed.
	if len(exclude) > 0 {
		query += ` AND gm.user_id NOT IN ?`
		args = append(args, exclude)
	}
	query += `
		ON CONFLICT (group_id, user_id) DO UPDATE
		SET unread_buy_count = group_unreads.unread_buy_count + EXCLUDED.unread_buy_count,
			unread_sell_count = group_unreads.unread_sell_count + EXCLUDED.unread_sell_count,
			updated_at = NOW()
		RETURNING group_id, user_id, unread_buy_count, unread_sell_count, updated_at`

	var rows []models.GroupUnread
	err := r.db.Raw(query, args...).Scan(&rows).Error
	return rows, err
}

func (r *UnreadRepository) Reset(groupID, userID uint) error {
	return r.db.Exec(`
		INSERT INTO group_unreads (group_id, user_id, unread_buy_count, unread_sell_count, updated_at)
		VALUES (?, ?, 0, 0, NOW())
		ON CONFLICT (group_id, user_id) DO UPDATE
		SET unread_buy_count = 0,
			unread_sell_count = 0,
			updated_at = NOW()
	`, groupID, userID).Error
}

func (r *UnreadRepository) Get(groupID, userID uint) (*models.GroupUnread, error) {
	var state models.GroupUnread
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ListByUser returns counters for groups that still exist.
func (r *UnreadRepository) ListByUser(userID uint) ([]models.GroupUnread, error) {
	var states []models.GroupUnread
	err := r.db.Table("group_unreads").
		Select("group_unreads.*").
		Joins("JOIN groups ON groups.id = group_unreads.group_id AND groups.deleted_at IS NULL").
		Where("group_unreads.user_id = ?", userID).
		Find(&states).Error
	return states, err
}
