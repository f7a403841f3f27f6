package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GenJess/file-chat-sage/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestAPIKeyRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAPIKeyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `api_keys`").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	key := &model.APIKey{UserID: 1, ServiceName: "openai", Key: "sk-value"}
	require.NoError(t, repo.Create(key))
	assert.Equal(t, uint(12), key.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepositoryListByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAPIKeyRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "service_name", "key", "created_at", "last_used_at"}).
		AddRow(2, 1, "openai", "sk-two", now, nil).
		AddRow(1, 1, "openai", "sk-one", now.Add(-time.Hour), now)
	mock.ExpectQuery("SELECT .+ FROM `api_keys` WHERE user_id = .+ ORDER BY created_at DESC").
		WithArgs(1).
		WillReturnRows(rows)

	keys, err := repo.ListByUserID(1)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint(2), keys[0].ID)
	assert.Equal(t, "sk-two", keys[0].Key)
	assert.Nil(t, keys[0].LastUsedAt)
	assert.NotNil(t, keys[1].LastUsedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepositoryGetByIDAndUserIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAPIKeyRepository(db)

	mock.ExpectQuery("SELECT .+ FROM `api_keys` WHERE id = .+ AND user_id = .+").
		WithArgs(9, 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	key, err := repo.GetByIDAndUserID(9, 1)
	require.NoError(t, err)
	assert.Nil(t, key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepositoryTouchLastUsed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAPIKeyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `api_keys` SET `last_used_at`=.+ WHERE id = .+").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.TouchLastUsed(3, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepositoryDeleteByIDAndUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAPIKeyRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `api_keys` WHERE id = .+ AND user_id = .+").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteByIDAndUserID(5, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}
