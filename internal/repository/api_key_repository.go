package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(key *model.APIKey) error {
	if err := r.db.Create(key).Error; err != nil {
		return fmt.Errorf("create api key failed: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) ListByUserID(userID uint) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("list api keys failed: %w", err)
	}
	return keys, nil
}

func (r *APIKeyRepository) GetByIDAndUserID(id, userID uint) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api key failed: %w", err)
	}
	return &key, nil
}

func (r *APIKeyRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.APIKey{}).Error; err != nil {
		return fmt.Errorf("delete api key failed: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) TouchLastUsed(id uint, at time.Time) error {
	if err := r.db.Model(&model.APIKey{}).Where("id = ?", id).Update("last_used_at", at).Error; err != nil {
		return fmt.Errorf("touch api key failed: %w", err)
	}
	return nil
}
