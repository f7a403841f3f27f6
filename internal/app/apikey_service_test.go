package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type mockAPIKeyRepo struct {
	createFn        func(key *model.APIKey) error
	listFn          func(userID uint) ([]model.APIKey, error)
	getFn           func(id, userID uint) (*model.APIKey, error)
	deleteFn        func(id, userID uint) error
	touchLastUsedFn func(id uint, at time.Time) error
}

func (m *mockAPIKeyRepo) Create(key *model.APIKey) error { return m.createFn(key) }
func (m *mockAPIKeyRepo) ListByUserID(userID uint) ([]model.APIKey, error) {
	return m.listFn(userID)
}
func (m *mockAPIKeyRepo) GetByIDAndUserID(id, userID uint) (*model.APIKey, error) {
	return m.getFn(id, userID)
}
func (m *mockAPIKeyRepo) DeleteByIDAndUserID(id, userID uint) error { return m.deleteFn(id, userID) }
func (m *mockAPIKeyRepo) TouchLastUsed(id uint, at time.Time) error {
	return m.touchLastUsedFn(id, at)
}

func TestAPIKeyCreate(t *testing.T) {
	var created *model.APIKey
	repo := &mockAPIKeyRepo{
		createFn: func(key *model.APIKey) error {
			key.ID = 11
			created = key
			return nil
		},
	}
	service := NewAPIKeyService(repo)

	record, err := service.Create(1, "  openai  ", "  sk-abcdef123456  ")
	require.NoError(t, err)
	assert.Equal(t, uint(11), record.ID)
	assert.Equal(t, "openai", created.ServiceName)
	assert.Equal(t, "sk-abcdef123456", created.Key)
}

func TestAPIKeyCreateInvalidInput(t *testing.T) {
	service := NewAPIKeyService(&mockAPIKeyRepo{})

	_, err := service.Create(1, "", "value")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Create(1, "openai", "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Create(0, "openai", "value")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAPIKeyListMasksValues(t *testing.T) {
	repo := &mockAPIKeyRepo{
		listFn: func(userID uint) ([]model.APIKey, error) {
			return []model.APIKey{
				{ID: 1, ServiceName: "openai", Key: "sk-abcdefghijkl"},
				{ID: 2, ServiceName: "other", Key: "short"},
			}, nil
		},
	}
	service := NewAPIKeyService(repo)

	keys, err := service.List(1)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "sk-a*******ijkl", keys[0].MaskedKey)
	assert.Equal(t, "****", keys[1].MaskedKey)
}

func TestAPIKeyDeleteNotFound(t *testing.T) {
	repo := &mockAPIKeyRepo{
		getFn: func(id, userID uint) (*model.APIKey, error) { return nil, nil },
	}
	service := NewAPIKeyService(repo)

	err := service.Delete(1, 99)
	require.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestAPIKeyDelete(t *testing.T) {
	deleted := false
	repo := &mockAPIKeyRepo{
		getFn: func(id, userID uint) (*model.APIKey, error) {
			return &model.APIKey{ID: id, UserID: userID}, nil
		},
		deleteFn: func(id, userID uint) error {
			deleted = true
			assert.Equal(t, uint(5), id)
			assert.Equal(t, uint(1), userID)
			return nil
		},
	}
	service := NewAPIKeyService(repo)

	require.NoError(t, service.Delete(1, 5))
	assert.True(t, deleted)
}

func TestTouchLastUsedStampsNewestMatch(t *testing.T) {
	var touchedID uint
	repo := &mockAPIKeyRepo{
		listFn: func(userID uint) ([]model.APIKey, error) {
			// Repository lists newest first.
			return []model.APIKey{
				{ID: 3, ServiceName: "openai"},
				{ID: 2, ServiceName: "other"},
				{ID: 1, ServiceName: "openai"},
			}, nil
		},
		touchLastUsedFn: func(id uint, at time.Time) error {
			touchedID = id
			return nil
		},
	}
	service := NewAPIKeyService(repo)

	require.NoError(t, service.TouchLastUsed(1, "openai"))
	assert.Equal(t, uint(3), touchedID)
}

func TestTouchLastUsedNoMatchIsNoop(t *testing.T) {
	repo := &mockAPIKeyRepo{
		listFn: func(userID uint) ([]model.APIKey, error) { return nil, nil },
		touchLastUsedFn: func(id uint, at time.Time) error {
			t.Fatal("should not be called")
			return nil
		},
	}
	service := NewAPIKeyService(repo)

	require.NoError(t, service.TouchLastUsed(1, "unknown"))
}
