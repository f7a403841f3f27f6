package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Store persists the knowledge-service credential. Absence is a valid state,
// not an error.
type Store interface {
	Load(userID uint) (value string, ok bool, err error)
	Save(userID uint, value string) error
}

// FileStore keeps one credential per user in a single JSON file. The value is
// stored verbatim; there is no encryption beyond the file itself.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(userID uint) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return "", false, err
	}
	value, ok := s.values[userKey(userID)]
	return value, ok && value != "", nil
}

func (s *FileStore) Save(userID uint, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.values[userKey(userID)] = value
	return s.flush()
}

func (s *FileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.values = make(map[string]string)

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("open credential store failed: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.values); err != nil {
		return fmt.Errorf("decode credential store failed: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *FileStore) flush() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential store dir failed: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("write credential store failed: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(s.values)
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
