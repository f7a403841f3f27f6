package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/GenJess/file-chat-sage/internal/kb"
	"github.com/GenJess/file-chat-sage/internal/model"
)

const (
	defaultKnowledgeBaseName        = "FileChatSage KB"
	defaultKnowledgeBaseDescription = "Knowledge base for FileChatSage documents"

	defaultDocumentName = "Unknown Document"
	defaultDocumentType = "application/octet-stream"
)

var (
	ErrNoCredential     = errors.New("no credential is set")
	ErrNoKnowledgeBase  = errors.New("no knowledge base is active")
	ErrDocumentNotFound = errors.New("document not found")
)

// UploadError reports a batch upload that stopped partway. Uploaded counts
// files the remote side accepted before the failure; none of them are kept in
// the visible list, so the caller can tell a failure at file three apart from
// an outage at file one.
type UploadError struct {
	FileName string
	Index    int
	Uploaded int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q (file %d, %d already uploaded) failed: %v", e.FileName, e.Index+1, e.Uploaded, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// UploadFile is one local file handed to the coordinator.
type UploadFile struct {
	Name     string
	Size     int64
	MimeType string
	Content  io.Reader
}

type workspace struct {
	credential    string
	knowledgeBase *model.KnowledgeBase
	documents     []model.Document
}

// WorkspaceService resolves the per-user knowledge base and keeps the local
// document mirror. The remote store is the source of truth; the mirror is not
// guaranteed consistent if the remote side is mutated out-of-band.
type WorkspaceService struct {
	client *kb.Client

	mu         sync.RWMutex
	workspaces map[uint]*workspace
}

func NewWorkspaceService(client *kb.Client) *WorkspaceService {
	return &WorkspaceService{
		client:     client,
		workspaces: make(map[uint]*workspace),
	}
}

// SetCredential resets the user's workspace around a new credential. The
// knowledge base and document mirror are dropped until the next Initialize.
func (s *WorkspaceService) SetCredential(userID uint, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[userID] = &workspace{credential: value}
}

// Initialize resolves exactly one knowledge base for the user's credential:
// the first existing one, or a freshly created one when none exist. It then
// fetches the remote document list into the local mirror. Re-invocation with
// unchanged remote state resolves the same knowledge base.
func (s *WorkspaceService) Initialize(ctx context.Context, userID uint) (model.KnowledgeBase, []model.Document, error) {
	apiKey, err := s.credentialFor(userID)
	if err != nil {
		return model.KnowledgeBase{}, nil, err
	}

	bases, err := s.client.ListKnowledgeBases(ctx, apiKey)
	if err != nil {
		return model.KnowledgeBase{}, nil, fmt.Errorf("list knowledge bases failed: %w", err)
	}

	var resolved model.KnowledgeBase
	if len(bases) > 0 {
		resolved = model.KnowledgeBase{ID: bases[0].ID, Name: bases[0].Name}
	} else {
		created, err := s.client.CreateKnowledgeBase(ctx, apiKey, defaultKnowledgeBaseName, defaultKnowledgeBaseDescription)
		if err != nil {
			return model.KnowledgeBase{}, nil, fmt.Errorf("create knowledge base failed: %w", err)
		}
		resolved = model.KnowledgeBase{ID: created.ID, Name: created.Name}
	}

	records, err := s.client.ListDocuments(ctx, apiKey, resolved.ID)
	if err != nil {
		return model.KnowledgeBase{}, nil, fmt.Errorf("list documents failed: %w", err)
	}

	documents := make([]model.Document, 0, len(records))
	for _, rec := range records {
		documents = append(documents, documentFromRecord(rec, time.Now()))
	}

	s.mu.Lock()
	s.workspaces[userID] = &workspace{
		credential:    apiKey,
		knowledgeBase: &resolved,
		documents:     documents,
	}
	s.mu.Unlock()

	return resolved, documents, nil
}

// KnowledgeBase returns the active knowledge base, if one has been resolved.
func (s *WorkspaceService) KnowledgeBase(userID uint) (model.KnowledgeBase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[userID]
	if !ok || ws.knowledgeBase == nil {
		return model.KnowledgeBase{}, false
	}
	return *ws.knowledgeBase, true
}

// Documents returns a copy of the visible document list, in insertion order.
func (s *WorkspaceService) Documents(userID uint) []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[userID]
	if !ok {
		return nil
	}
	out := make([]model.Document, len(ws.documents))
	copy(out, ws.documents)
	return out
}

// Upload sends the files one at a time, in order. The batch's documents reach
// the visible list only after every file succeeds; a mid-batch failure
// discards the accumulated additions even though the earlier files are
// already on the remote side.
func (s *WorkspaceService) Upload(ctx context.Context, userID uint, files []UploadFile) ([]model.Document, error) {
	apiKey, base, err := s.activeFor(userID)
	if err != nil {
		return nil, err
	}

	uploaded := make([]model.Document, 0, len(files))
	for i, file := range files {
		documentID, err := s.client.UploadDocument(ctx, apiKey, base.ID, file.Name, file.Content)
		if err != nil {
			return nil, &UploadError{
				FileName: file.Name,
				Index:    i,
				Uploaded: len(uploaded),
				Err:      err,
			}
		}
		mimeType := file.MimeType
		if mimeType == "" {
			mimeType = defaultDocumentType
		}
		uploaded = append(uploaded, model.Document{
			ID:         documentID,
			Name:       file.Name,
			Size:       file.Size,
			MimeType:   mimeType,
			UploadedAt: time.Now(),
		})
	}

	s.mu.Lock()
	if ws, ok := s.workspaces[userID]; ok {
		ws.documents = append(ws.documents, uploaded...)
	}
	s.mu.Unlock()

	return uploaded, nil
}

// Delete removes the document remotely and, only once the remote call
// confirms, drops it from the visible list. The removed document is returned
// so a descriptive transcript notice can be appended.
func (s *WorkspaceService) Delete(ctx context.Context, userID uint, documentID string) (model.Document, error) {
	apiKey, base, err := s.activeFor(userID)
	if err != nil {
		return model.Document{}, err
	}

	s.mu.RLock()
	var target *model.Document
	if ws, ok := s.workspaces[userID]; ok {
		for i := range ws.documents {
			if ws.documents[i].ID == documentID {
				doc := ws.documents[i]
				target = &doc
				break
			}
		}
	}
	s.mu.RUnlock()
	if target == nil {
		return model.Document{}, ErrDocumentNotFound
	}

	if err := s.client.DeleteDocument(ctx, apiKey, base.ID, documentID); err != nil {
		return model.Document{}, fmt.Errorf("delete document failed: %w", err)
	}

	s.mu.Lock()
	if ws, ok := s.workspaces[userID]; ok {
		kept := ws.documents[:0]
		for _, doc := range ws.documents {
			if doc.ID != documentID {
				kept = append(kept, doc)
			}
		}
		ws.documents = kept
	}
	s.mu.Unlock()

	return *target, nil
}

// Active returns the credential and resolved knowledge base a dependent
// operation needs, or the reason it must stay disabled.
func (s *WorkspaceService) Active(userID uint) (string, model.KnowledgeBase, error) {
	return s.activeFor(userID)
}

func (s *WorkspaceService) credentialFor(userID uint) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[userID]
	if !ok || ws.credential == "" {
		return "", ErrNoCredential
	}
	return ws.credential, nil
}

func (s *WorkspaceService) activeFor(userID uint) (string, model.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[userID]
	if !ok || ws.credential == "" {
		return "", model.KnowledgeBase{}, ErrNoCredential
	}
	if ws.knowledgeBase == nil {
		return "", model.KnowledgeBase{}, ErrNoKnowledgeBase
	}
	return ws.credential, *ws.knowledgeBase, nil
}

// documentFromRecord maps a remote record to the local document shape,
// substituting fixed defaults for absent fields.
func documentFromRecord(rec kb.DocumentRecord, now time.Time) model.Document {
	doc := model.Document{
		ID:         rec.ID,
		Name:       rec.Name,
		Size:       rec.Size,
		MimeType:   rec.Type,
		UploadedAt: now,
	}
	if doc.Name == "" {
		doc.Name = defaultDocumentName
	}
	if doc.Size < 0 {
		doc.Size = 0
	}
	if doc.MimeType == "" {
		doc.MimeType = defaultDocumentType
	}
	if rec.UploadDate != "" {
		if parsed, err := time.Parse(time.RFC3339, rec.UploadDate); err == nil {
			doc.UploadedAt = parsed
		}
	}
	return doc
}
