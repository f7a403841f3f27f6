package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type ArchivedMessageRepository struct {
	db *gorm.DB
}

func NewArchivedMessageRepository(db *gorm.DB) *ArchivedMessageRepository {
	return &ArchivedMessageRepository{db: db}
}

func (r *ArchivedMessageRepository) Create(message *model.ArchivedMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create archived message failed: %w", err)
	}
	return nil
}

func (r *ArchivedMessageRepository) ListByUserID(userID uint, limit int) ([]model.ArchivedMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.ArchivedMessage
	if err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list archived messages failed: %w", err)
	}
	return messages, nil
}
