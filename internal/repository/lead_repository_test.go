package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectLeadState(mock sqlmock.Sqlmock, id, groupID uint, status models.LeadStatus) {
	mock.ExpectQuery(`SELECT "id","group_id","status" FROM "leads" WHERE "leads"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "status"}).AddRow(int64(id), int64(groupID), string(status)))
}

func TestApproveAssignsGroupSequence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLeadRepository(db)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectLeadState(mock, 11, 7, models.LeadPending)
	mock.ExpectQuery(`UPDATE groups SET lead_seq = lead_seq \+ 1, updated_at = NOW\(\) WHERE id = \$1 RETURNING lead_seq`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"lead_seq"}).AddRow(42))
	mock.ExpectExec(`UPDATE "leads" SET "admin_comment"=\$1,"moderated_at"=\$2,"moderated_by"=\$3,"sequence"=\$4,"status"=\$5,"updated_at"=\$6 WHERE id = \$7 AND status = \$8`).
		WithArgs("ok", sqlmock.AnyArg(), 99, 42, string(models.LeadApproved), sqlmock.AnyArg(), 11, string(models.LeadPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "leads" WHERE "leads"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "status", "sequence"}).AddRow(11, 7, string(models.LeadApproved), 42))
	mock.ExpectQuery(`SELECT \* FROM "lead_documents" WHERE "lead_documents"."lead_id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "key"}))

	lead, err := repo.Approve(11, 99, "ok", at)
	require.NoError(t, err)
	assert.Equal(t, models.LeadApproved, lead.Status)
	assert.Equal(t, uint64(42), lead.Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveStaleLead(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
	}{
		{
			name: "already moderated",
			expect: func(mock sqlmock.Sqlmock) {
				expectLeadState(mock, 11, 7, models.LeadApproved)
			},
		},
		{
			name: "moderated concurrently",
			expect: func(mock sqlmock.Sqlmock) {
				expectLeadState(mock, 11, 7, models.LeadPending)
				mock.ExpectQuery(`UPDATE groups SET lead_seq = lead_seq \+ 1`).
					WillReturnRows(sqlmock.NewRows([]string{"lead_seq"}).AddRow(5))
				mock.ExpectExec(`UPDATE "leads" SET`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewLeadRepository(db)

			mock.ExpectBegin()
			tt.expect(mock)
			mock.ExpectRollback()

			_, err := repo.Approve(11, 99, "", time.Now())
			assert.ErrorIs(t, err, ErrStaleTransition)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
