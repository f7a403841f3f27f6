package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GenJess/file-chat-sage/internal/model"
)

// UserRepository backs account lookups. Not-found is reported as a nil user,
// matching the other repositories here; the service layer decides which
// sentinel that maps to.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	return r.findOne("query user by username failed", "username = ?", username)
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	return r.findOne("query user by email failed", "email = ?", email)
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	return r.findOne("query user by id failed", "id = ?", id)
}

func (r *UserRepository) findOne(failMsg, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	return &user, nil
}
