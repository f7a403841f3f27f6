package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GenJess/file-chat-sage/internal/model"
)

type mockUserStore struct {
	createFn        func(user *model.User) error
	getByUsernameFn func(username string) (*model.User, error)
	getByEmailFn    func(email string) (*model.User, error)
	getByIDFn       func(id uint) (*model.User, error)
}

func (m *mockUserStore) Create(user *model.User) error {
	if m.createFn != nil {
		return m.createFn(user)
	}
	return nil
}

func (m *mockUserStore) GetByUsername(username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(username)
	}
	return nil, nil
}

func (m *mockUserStore) GetByEmail(email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(email)
	}
	return nil, nil
}

func (m *mockUserStore) GetByID(id uint) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return nil, nil
}

type mockCredentialLoader struct {
	loadFn func(userID uint) (string, bool, error)
	calls  []uint
}

func (m *mockCredentialLoader) Load(userID uint) (string, bool, error) {
	m.calls = append(m.calls, userID)
	if m.loadFn != nil {
		return m.loadFn(userID)
	}
	return "", false, nil
}

func newAuthFixture(users *mockUserStore, loader *mockCredentialLoader) *AuthService {
	return NewAuthService(users, loader, "test-secret", time.Hour)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterIssuesToken(t *testing.T) {
	users := &mockUserStore{
		createFn: func(user *model.User) error {
			user.ID = 7
			return nil
		},
	}
	svc := newAuthFixture(users, &mockCredentialLoader{})

	result, err := svc.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.False(t, result.CredentialSet)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("correct horse")))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newAuthFixture(&mockUserStore{}, &mockCredentialLoader{})

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@b.com", Password: "short"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	users := &mockUserStore{
		getByUsernameFn: func(username string) (*model.User, error) {
			return &model.User{ID: 1, Username: username}, nil
		},
	}
	svc := newAuthFixture(users, &mockCredentialLoader{})

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@b.com", Password: "correct horse"})

	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	users := &mockUserStore{
		getByEmailFn: func(email string) (*model.User, error) {
			return &model.User{ID: 1, Email: email}, nil
		},
	}
	svc := newAuthFixture(users, &mockCredentialLoader{})

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "a@b.com", Password: "correct horse"})

	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginReportsStoredCredential(t *testing.T) {
	users := &mockUserStore{
		getByUsernameFn: func(username string) (*model.User, error) {
			return &model.User{ID: 42, Username: username, PasswordHash: hashPassword(t, "correct horse")}, nil
		},
	}
	loader := &mockCredentialLoader{
		loadFn: func(userID uint) (string, bool, error) {
			return "kb-key", true, nil
		},
	}
	svc := newAuthFixture(users, loader)

	result, err := svc.Login(LoginInput{Username: "alice", Password: "correct horse"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.CredentialSet)
	assert.Equal(t, []uint{42}, loader.calls)
}

func TestLoginWithoutStoredCredential(t *testing.T) {
	users := &mockUserStore{
		getByUsernameFn: func(username string) (*model.User, error) {
			return &model.User{ID: 42, Username: username, PasswordHash: hashPassword(t, "correct horse")}, nil
		},
	}
	svc := newAuthFixture(users, &mockCredentialLoader{})

	result, err := svc.Login(LoginInput{Username: "alice", Password: "correct horse"})

	require.NoError(t, err)
	assert.False(t, result.CredentialSet)
}

func TestLoginCredentialLoadFailureLeavesUnset(t *testing.T) {
	users := &mockUserStore{
		getByUsernameFn: func(username string) (*model.User, error) {
			return &model.User{ID: 42, Username: username, PasswordHash: hashPassword(t, "correct horse")}, nil
		},
	}
	loader := &mockCredentialLoader{
		loadFn: func(userID uint) (string, bool, error) {
			return "", false, errors.New("store unavailable")
		},
	}
	svc := newAuthFixture(users, loader)

	result, err := svc.Login(LoginInput{Username: "alice", Password: "correct horse"})

	require.NoError(t, err)
	assert.False(t, result.CredentialSet)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := &mockUserStore{
		getByUsernameFn: func(username string) (*model.User, error) {
			return &model.User{ID: 42, Username: username, PasswordHash: hashPassword(t, "correct horse")}, nil
		},
	}
	svc := newAuthFixture(users, &mockCredentialLoader{})

	_, err := svc.Login(LoginInput{Username: "alice", Password: "wrong"})

	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	svc := newAuthFixture(&mockUserStore{}, &mockCredentialLoader{})

	_, err := svc.Login(LoginInput{Username: "ghost", Password: "whatever"})

	assert.ErrorIs(t, err, ErrInvalidCredential)
}
