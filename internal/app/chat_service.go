package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GenJess/file-chat-sage/internal/kb"
	"github.com/GenJess/file-chat-sage/internal/model"
)

const (
	welcomeMessageID      = "welcome"
	welcomeMessageContent = "Hello! I'm ready to help you chat with your documents. Upload some files to get started, then ask me questions about them!"

	emptyAnswerFallback   = "I received your message but couldn't generate a response."
	converseFailureNotice = "Failed to get a response from the AI. Please try again or check if your documents were uploaded successfully."

	// At most this many prior turns travel with each query.
	historyWindow = 10
)

var (
	ErrSessionBusy    = errors.New("a previous message is still being processed")
	ErrMessageEmpty   = errors.New("message content is empty")
	ErrConverseFailed = errors.New("conversation request failed")
)

// AsyncMessagePublisher hands transcript entries to the archive queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.ArchivedMessage) error
}

// HistoryCache fronts archived transcript reads.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.ArchivedMessage, bool, error)
	SetHistory(ctx context.Context, userID uint, messages []model.ArchivedMessage) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

// ArchiveRepository reads back what the persist worker has stored.
type ArchiveRepository interface {
	ListByUserID(userID uint, limit int) ([]model.ArchivedMessage, error)
}

type sessionState int

const (
	sessionIdle sessionState = iota
	sessionSending
)

// session is one user's conversation: an append-only transcript and an
// explicit idle/sending state driven only under the session mutex, which is
// what serializes submissions.
type session struct {
	mu       sync.Mutex
	state    sessionState
	messages []model.Message
}

// SubmitResult carries the two transcript entries a completed submission
// appends.
type SubmitResult struct {
	Messages []model.Message `json:"messages"`
}

// ChatService runs one conversation session per user against the active
// knowledge base.
type ChatService struct {
	workspace    *WorkspaceService
	client       *kb.Client
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	archiveRepo  ArchiveRepository
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[uint]*session
}

func NewChatService(
	workspace *WorkspaceService,
	client *kb.Client,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	archiveRepo ArchiveRepository,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		workspace:    workspace,
		client:       client,
		publisher:    publisher,
		historyCache: historyCache,
		archiveRepo:  archiveRepo,
		logger:       logger,
		sessions:     make(map[uint]*session),
	}
}

// Submit appends the user message synchronously, forwards it with a trailing
// window of prior turns, and appends exactly one assistant or system entry
// once the remote call resolves. A submit while a prior one is unresolved is
// rejected, not queued, and appends nothing.
func (s *ChatService) Submit(ctx context.Context, userID uint, text string) (*SubmitResult, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	sess := s.sessionFor(userID)

	sess.mu.Lock()
	if sess.state == sessionSending {
		sess.mu.Unlock()
		return nil, ErrSessionBusy
	}
	apiKey, base, err := s.workspace.Active(userID)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}

	history := conversationWindow(sess.messages, historyWindow)

	now := time.Now()
	userMessage := model.Message{
		ID:      model.NewMessageID(now),
		Role:    model.RoleUser,
		Content: content,
	}
	sess.messages = append(sess.messages, userMessage)
	sess.state = sessionSending
	sess.mu.Unlock()

	s.archive(ctx, userID, userMessage)

	answer, converseErr := s.client.Converse(ctx, apiKey, base.ID, content, history)

	var reply model.Message
	sess.mu.Lock()
	if converseErr != nil {
		reply = model.Message{
			ID:      model.NewMessageID(time.Now()),
			Role:    model.RoleSystem,
			Content: converseFailureNotice,
		}
	} else {
		if strings.TrimSpace(answer) == "" {
			answer = emptyAnswerFallback
		}
		reply = model.Message{
			ID:      model.NewMessageID(time.Now().Add(time.Millisecond)),
			Role:    model.RoleAssistant,
			Content: answer,
		}
	}
	sess.messages = append(sess.messages, reply)
	sess.state = sessionIdle
	sess.mu.Unlock()

	s.archive(ctx, userID, reply)

	if converseErr != nil {
		s.logger.Warn("conversation request failed",
			zap.Uint("user_id", userID),
			zap.Error(converseErr),
		)
		return nil, fmt.Errorf("%w: %v", ErrConverseFailed, converseErr)
	}

	return &SubmitResult{Messages: []model.Message{userMessage, reply}}, nil
}

// Messages returns a copy of the live transcript.
func (s *ChatService) Messages(userID uint) []model.Message {
	sess := s.sessionFor(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]model.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// AddNotice appends an informational system entry, such as an upload or
// delete confirmation. Notices never travel to the remote endpoint.
func (s *ChatService) AddNotice(ctx context.Context, userID uint, content string) model.Message {
	notice := model.Message{
		ID:      model.NewMessageID(time.Now()),
		Role:    model.RoleSystem,
		Content: content,
	}

	sess := s.sessionFor(userID)
	sess.mu.Lock()
	sess.messages = append(sess.messages, notice)
	sess.mu.Unlock()

	s.archive(ctx, userID, notice)
	return notice
}

// History reads the archived transcript through the cache, falling back to
// the repository and refreshing the cache when it is not dirty.
func (s *ChatService) History(ctx context.Context, userID uint, limit int) ([]model.ArchivedMessage, error) {
	if s.archiveRepo == nil {
		return nil, nil
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return trimArchived(cached, limit), nil
			}
		}
	}

	messages, err := s.archiveRepo.ListByUserID(userID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) sessionFor(userID uint) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{
			messages: []model.Message{{
				ID:      welcomeMessageID,
				Role:    model.RoleSystem,
				Content: welcomeMessageContent,
			}},
		}
		s.sessions[userID] = sess
	}
	return sess
}

// archive publishes the entry for async persistence. Archival is supplemental
// durability; its failure must not surface to the session.
func (s *ChatService) archive(ctx context.Context, userID uint, msg model.Message) {
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, userID)
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}
	if s.publisher == nil {
		return
	}
	archived := model.ArchivedMessage{
		UserID:    userID,
		MessageID: msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, archived); err != nil {
		s.logger.Warn("archive transcript entry failed",
			zap.Uint("user_id", userID),
			zap.String("role", msg.Role),
			zap.Error(err),
		)
	}
}

// conversationWindow picks the trailing prior turns that accompany a query.
// System entries are informational only and never sent; the remote protocol
// names the assistant side "agent".
func conversationWindow(messages []model.Message, max int) []kb.Turn {
	turns := make([]kb.Turn, 0, max)
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		role := msg.Role
		if role == model.RoleAssistant {
			role = "agent"
		}
		turns = append(turns, kb.Turn{Role: role, Message: msg.Content})
	}
	if len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return turns
}

func trimArchived(messages []model.ArchivedMessage, limit int) []model.ArchivedMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
