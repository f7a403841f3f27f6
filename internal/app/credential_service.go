package app

import (
	"errors"
	"strings"
	"sync"

	"github.com/GenJess/file-chat-sage/internal/credential"
)

var ErrCredentialEmpty = errors.New("credential is empty")

// CredentialService owns the per-user knowledge-service credential: a durable
// store behind an in-memory cache. Submitting never validates against the
// remote service; a bad credential only shows up when a dependent call fails.
type CredentialService struct {
	store credential.Store

	mu          sync.RWMutex
	cache       map[uint]string
	subscribers []func(userID uint, value string)
}

func NewCredentialService(store credential.Store) *CredentialService {
	return &CredentialService{
		store: store,
		cache: make(map[uint]string),
	}
}

// Subscribe registers a callback fired synchronously whenever a credential is
// set, both on Load of a persisted value and on Submit.
func (s *CredentialService) Subscribe(fn func(userID uint, value string)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Load populates the cache from the durable store. Absence is the valid
// not-set state, not an error.
func (s *CredentialService) Load(userID uint) (string, bool, error) {
	s.mu.RLock()
	if cached, ok := s.cache[userID]; ok {
		s.mu.RUnlock()
		return cached, true, nil
	}
	s.mu.RUnlock()

	value, ok, err := s.store.Load(userID)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	s.mu.Lock()
	s.cache[userID] = value
	subs := append([]func(uint, string){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(userID, value)
	}
	return value, true, nil
}

// Submit persists the trimmed value, caches it, and notifies subscribers
// before returning. An empty value after trimming is rejected.
func (s *CredentialService) Submit(userID uint, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ErrCredentialEmpty
	}

	if err := s.store.Save(userID, trimmed); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[userID] = trimmed
	subs := append([]func(uint, string){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(userID, trimmed)
	}
	return nil
}

// Get returns the cached credential, if any.
func (s *CredentialService) Get(userID uint) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.cache[userID]
	return value, ok && value != ""
}
