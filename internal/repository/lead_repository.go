package repository

import (
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create stores the lead and its documents in one transaction.
func (r *LeadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

func (r *LeadRepository) FindByID(id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.Preload("Documents").Preload("Author").First(&lead, id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// Approve moves a pending lead to approved and assigns the next sequence
// number of its group. Both happen in one transaction so history readers
// never see an approved lead without its sequence.
func (r *LeadRepository) Approve(id, adminID uint, comment string, at time.Time) (*models.Lead, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.Select("id", "group_id", "status").First(&lead, id).Error; err != nil {
			return err
		}
		if lead.Status != models.LeadPending {
			return ErrStaleTransition
		}

		var seq uint64
		if err := tx.Raw(`
			UPDATE groups SET lead_seq = lead_seq + 1, updated_at = NOW()
			WHERE id = ?
			RETURNING lead_seq
		`, lead.GroupID).Scan(&seq).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Lead{}).
			Where("id = ? AND status = ?", id, models.LeadPending).
			Updates(map[string]interface{}{
				"status":        models.LeadApproved,
				"admin_comment": comment,
				"moderated_by":  adminID,
				"moderated_at":  at,
				"sequence":      seq,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(id)
}

func (r *LeadRepository) Reject(id, adminID uint, comment string, at time.Time) (*models.Lead, error) {
	res := r.db.Model(&models.Lead{}).
		Where("id = ? AND status = ?", id, models.LeadPending).
		Updates(map[string]interface{}{
			"status":        models.LeadRejected,
			"admin_comment": comment,
			"moderated_by":  adminID,
			"moderated_at":  at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.staleOrMissing(id)
	}
	return r.FindByID(id)
}

// TransitionBroadcast moves an approved lead's broadcast state from one
// value to another, failing when the current state differs.
func (r *LeadRepository) TransitionBroadcast(id uint, from, to models.BroadcastState, at time.Time) (*models.Lead, error) {
	updates := map[string]interface{}{"broadcast": to}
	if to == models.BroadcastApproved {
		updates["broadcast_at"] = at
	}
	res := r.db.Model(&models.Lead{}).
		Where("id = ? AND status = ? AND broadcast = ?", id, models.LeadApproved, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.staleOrMissing(id)
	}
	return r.FindByID(id)
}

// staleOrMissing distinguishes a missing lead from one in another state.
func (r *LeadRepository) staleOrMissing(id uint) error {
	var count int64
	if err := r.db.Model(&models.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStaleTransition
}

// ListApproved pages approved leads of a group by sequence. With beforeSeq
// set the page walks backwards and is returned newest first; otherwise it
// walks forward from afterSeq in ascending order.
func (r *LeadRepository) ListApproved(groupID uint, afterSeq, beforeSeq uint64, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	q := r.db.Preload("Documents").Preload("Author").
		Where("group_id = ? AND status = ?", groupID, models.LeadApproved)
	if beforeSeq > 0 {
		q = q.Where("sequence < ?", beforeSeq).Order("sequence DESC")
	} else {
		q = q.Where("sequence > ?", afterSeq).Order("sequence ASC")
	}
	err := q.Limit(limit).Find(&leads).Error
	return leads, err
}

func (r *LeadRepository) ListByAuthor(authorID uint, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.Preload("Documents").
		Where("author_id = ?", authorID).
		Order("id DESC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

func (r *LeadRepository) ListByStatus(status models.LeadStatus, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.Preload("Documents").Preload("Author").
		Where("status = ?", status).
		Order("id ASC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

func (r *LeadRepository) ListBroadcastPending(limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.Preload("Documents").Preload("Author").
		Where("status = ? AND broadcast = ?", models.LeadApproved, models.BroadcastPending).
		Order("id ASC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

func (r *LeadRepository) ListMarquee(limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.Preload("Author").
		Where("status = ? AND broadcast = ?", models.LeadApproved, models.BroadcastApproved).
		Order("broadcast_at DESC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

// FindDocumentsByKey returns every document row referencing the object.
// Resent leads share objects with the lead they were copied from.
func (r *LeadRepository) FindDocumentsByKey(key string) ([]models.LeadDocument, error) {
	var docs []models.LeadDocument
	err := r.db.Where("key = ?", key).Order("id").Find(&docs).Error
	return docs, err
}
