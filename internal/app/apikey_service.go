package app

import (
	"errors"
	"strings"
	"time"

	"github.com/GenJess/file-chat-sage/internal/model"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeyRepository persists per-user third-party service keys.
type APIKeyRepository interface {
	Create(key *model.APIKey) error
	ListByUserID(userID uint) ([]model.APIKey, error)
	GetByIDAndUserID(id, userID uint) (*model.APIKey, error)
	DeleteByIDAndUserID(id, userID uint) error
	TouchLastUsed(id uint, at time.Time) error
}

// MaskedAPIKey is the list representation: the stored value never leaves the
// service unmasked.
type MaskedAPIKey struct {
	ID          uint       `json:"id"`
	ServiceName string     `json:"service_name"`
	MaskedKey   string     `json:"masked_key"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

type APIKeyService struct {
	repo APIKeyRepository
}

func NewAPIKeyService(repo APIKeyRepository) *APIKeyService {
	return &APIKeyService{repo: repo}
}

func (s *APIKeyService) Create(userID uint, serviceName, key string) (*model.APIKey, error) {
	serviceName = strings.TrimSpace(serviceName)
	key = strings.TrimSpace(key)
	if userID == 0 || serviceName == "" || key == "" {
		return nil, ErrInvalidInput
	}

	record := &model.APIKey{
		UserID:      userID,
		ServiceName: serviceName,
		Key:         key,
	}
	if err := s.repo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *APIKeyService) List(userID uint) ([]MaskedAPIKey, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	records, err := s.repo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	out := make([]MaskedAPIKey, len(records))
	for i, rec := range records {
		out[i] = MaskedAPIKey{
			ID:          rec.ID,
			ServiceName: rec.ServiceName,
			MaskedKey:   maskSecret(rec.Key),
			CreatedAt:   rec.CreatedAt,
			LastUsedAt:  rec.LastUsedAt,
		}
	}
	return out, nil
}

func (s *APIKeyService) Delete(userID, keyID uint) error {
	if userID == 0 || keyID == 0 {
		return ErrInvalidInput
	}
	record, err := s.repo.GetByIDAndUserID(keyID, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrAPIKeyNotFound
	}
	return s.repo.DeleteByIDAndUserID(keyID, userID)
}

// TouchLastUsed stamps the newest key stored for the service. Best effort:
// having no key for the service is not an error.
func (s *APIKeyService) TouchLastUsed(userID uint, serviceName string) error {
	if userID == 0 || strings.TrimSpace(serviceName) == "" {
		return ErrInvalidInput
	}
	records, err := s.repo.ListByUserID(userID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ServiceName == serviceName {
			return s.repo.TouchLastUsed(rec.ID, time.Now())
		}
	}
	return nil
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
