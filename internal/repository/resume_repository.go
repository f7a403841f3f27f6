package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type ResumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(resume *model.Resume) error {
	if err := r.db.Create(resume).Error; err != nil {
		return fmt.Errorf("create resume failed: %w", err)
	}
	return nil
}

func (r *ResumeRepository) ListByUserID(userID uint) ([]model.Resume, error) {
	var resumes []model.Resume
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list resumes failed: %w", err)
	}
	return resumes, nil
}

func (r *ResumeRepository) GetByIDAndUserID(id, userID uint) (*model.Resume, error) {
	var resume model.Resume
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resume failed: %w", err)
	}
	return &resume, nil
}

func (r *ResumeRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Resume{}).Error; err != nil {
		return fmt.Errorf("delete resume failed: %w", err)
	}
	return nil
}
