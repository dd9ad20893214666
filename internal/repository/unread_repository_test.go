package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unreadColumns = []string{"group_id", "user_id", "unread_buy_count", "unread_sell_count", "updated_at"}

func TestIncrementExcept(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		leadType models.LeadType
		exclude  []uint
		query    string
		args     []driver.Value
	}{
		{
			name:     "sell lead without exclusions",
			leadType: models.LeadSell,
			query:    `SELECT gm.group_id, gm.user_id, \$1, \$2, NOW\(\) FROM group_members gm WHERE gm.group_id = \$3 ON CONFLICT \(group_id, user_id\) DO UPDATE`,
			args:     []driver.Value{0, 1, 7},
		},
		{
			name:     "buy lead excluding viewers",
			leadType: models.LeadBuy,
			exclude:  []uint{2, 5},
			query:    `WHERE gm.group_id = \$3 AND gm.user_id NOT IN \(\$4,\$5\) ON CONFLICT \(group_id, user_id\) DO UPDATE`,
			args:     []driver.Value{1, 0, 7, 2, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewUnreadRepository(db)

			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(unreadColumns).AddRow(7, 3, 1, 4, now))

			rows, err := repo.IncrementExcept(7, tt.leadType, tt.exclude)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, uint(3), rows[0].UserID)
			assert.Equal(t, 1, rows[0].UnreadBuyCount)
			assert.Equal(t, 4, rows[0].UnreadSellCount)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIncrementExceptReturnsUpdatedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUnreadRepository(db)

	mock.ExpectQuery(`RETURNING group_id, user_id, unread_buy_count, unread_sell_count, updated_at`).
		WillReturnRows(sqlmock.NewRows(unreadColumns))

	rows, err := repo.IncrementExcept(9, models.LeadSell, []uint{1})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
