package repository

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(group *models.Group) error {
	return r.db.Create(group).Error
}

func (r *GroupRepository) CreateBatch(groups []models.Group) error {
	if len(groups) == 0 {
		return nil
	}
	return r.db.CreateInBatches(groups, 100).Error
}

func (r *GroupRepository) Update(group *models.Group) error {
	return r.db.Model(group).Select("name", "hs_chapter", "scope", "image", "image_key").Updates(group).Error
}

// Delete soft-deletes the group and removes its memberships.
func (r *GroupRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Group{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GroupRepository) FindByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) ListByChapter(chapter string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Where("hs_chapter = ?", chapter).Order("id").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) ListByScope(scope models.GroupScope) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Where("scope = ?", scope).Order("id").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) ListAll() ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Order("id").Find(&groups).Error
	return groups, err
}

func (r *GroupRepository) AddMember(groupID, userID uint) error {
	member := models.GroupMember{
		GroupID: groupID,
		UserID:  userID,
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
}

func (r *GroupRepository) RemoveMember(groupID, userID uint) error {
	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error
}

func (r *GroupRepository) IsMember(groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id AND groups.deleted_at IS NULL").
		Where("group_members.group_id = ? AND group_members.user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// FilterMemberGroups returns the subset of groupIDs the user belongs to.
func (r *GroupRepository) FilterMemberGroups(userID uint, groupIDs []uint) ([]uint, error) {
	ids := []uint{}
	if len(groupIDs) == 0 {
		return ids, nil
	}
	err := r.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id AND groups.deleted_at IS NULL").
		Where("group_members.user_id = ? AND group_members.group_id IN ?", userID, groupIDs).
		Pluck("group_members.group_id", &ids).Error
	return ids, err
}

func (r *GroupRepository) GetMemberIDs(groupID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *GroupRepository) GetUserGroups(userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.id").
		Find(&groups).Error
	return groups, err
}
