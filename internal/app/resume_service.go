package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GenJess/file-chat-sage/internal/model"
	"github.com/GenJess/file-chat-sage/internal/pkg/pdfextract"
)

var ErrResumeNotFound = errors.New("resume not found")

// ObjectStore holds the rendered resume files.
type ObjectStore interface {
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ResumeRepository persists resume metadata rows.
type ResumeRepository interface {
	Create(resume *model.Resume) error
	ListByUserID(userID uint) ([]model.Resume, error)
	GetByIDAndUserID(id, userID uint) (*model.Resume, error)
	DeleteByIDAndUserID(id, userID uint) error
}

// The stored document is HTML rather than true PDF, matching what the
// generation endpoint has always produced.
var resumeTemplate = template.Must(template.New("resume").Parse(`<html>
<head>
<style>
  body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; }
  h1 { color: #333; border-bottom: 2px solid #333; padding-bottom: 10px; }
  .content { margin-top: 20px; }
</style>
</head>
<body>
<h1>Resume for {{.JobID}}</h1>
<div class="content">{{.Body}}</div>
<footer style="margin-top: 40px; text-align: center; color: #666; font-size: 12px;">Generated on {{.Date}}</footer>
</body>
</html>
`))

type GenerateResumeInput struct {
	UserID uint
	JobID  string
	Text   string
}

type GenerateResumeResult struct {
	Resume   model.Resume `json:"resume"`
	FileName string       `json:"file_name"`
}

type ResumeService struct {
	repo  ResumeRepository
	store ObjectStore
}

func NewResumeService(repo ResumeRepository, store ObjectStore) *ResumeService {
	return &ResumeService{repo: repo, store: store}
}

// Generate renders the resume document, stores it, and records the row.
func (s *ResumeService) Generate(ctx context.Context, input GenerateResumeInput) (*GenerateResumeResult, error) {
	jobID := strings.TrimSpace(input.JobID)
	text := strings.TrimSpace(input.Text)
	if input.UserID == 0 || jobID == "" || text == "" {
		return nil, ErrInvalidInput
	}

	rendered, err := renderResume(jobID, text)
	if err != nil {
		return nil, err
	}

	fileKey := fmt.Sprintf("%d/%s-%s.html", input.UserID, jobID, uuid.NewString())
	if err := s.store.Put(ctx, fileKey, bytes.NewReader(rendered), int64(len(rendered)), "text/html"); err != nil {
		return nil, fmt.Errorf("store resume file failed: %w", err)
	}

	resume := &model.Resume{
		UserID:  input.UserID,
		JobID:   jobID,
		FileKey: fileKey,
		Content: text,
	}
	if err := s.repo.Create(resume); err != nil {
		return nil, err
	}

	return &GenerateResumeResult{Resume: *resume, FileName: fileKey}, nil
}

// ImportPDF extracts the text of an uploaded resume PDF and stores it like a
// generated one, so it can be listed, downloaded, and re-rendered.
func (s *ResumeService) ImportPDF(ctx context.Context, userID uint, jobID string, pdf io.Reader) (*GenerateResumeResult, error) {
	text, err := pdfextract.ExtractText(pdf)
	if err != nil {
		return nil, fmt.Errorf("extract resume text failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	return s.Generate(ctx, GenerateResumeInput{UserID: userID, JobID: jobID, Text: text})
}

func (s *ResumeService) List(userID uint) ([]model.Resume, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUserID(userID)
}

func (s *ResumeService) Delete(ctx context.Context, userID, resumeID uint) error {
	if userID == 0 || resumeID == 0 {
		return ErrInvalidInput
	}
	resume, err := s.repo.GetByIDAndUserID(resumeID, userID)
	if err != nil {
		return err
	}
	if resume == nil {
		return ErrResumeNotFound
	}
	if err := s.store.Remove(ctx, resume.FileKey); err != nil {
		return fmt.Errorf("remove resume file failed: %w", err)
	}
	return s.repo.DeleteByIDAndUserID(resumeID, userID)
}

// Download streams the stored file. The caller owns closing the reader.
func (s *ResumeService) Download(ctx context.Context, userID, resumeID uint) (io.ReadCloser, string, error) {
	if userID == 0 || resumeID == 0 {
		return nil, "", ErrInvalidInput
	}
	resume, err := s.repo.GetByIDAndUserID(resumeID, userID)
	if err != nil {
		return nil, "", err
	}
	if resume == nil {
		return nil, "", ErrResumeNotFound
	}
	content, err := s.store.Get(ctx, resume.FileKey)
	if err != nil {
		return nil, "", fmt.Errorf("fetch resume file failed: %w", err)
	}
	return content, fmt.Sprintf("resume-%s.html", resume.JobID), nil
}

func renderResume(jobID, text string) ([]byte, error) {
	body := template.HTML(strings.ReplaceAll(template.HTMLEscapeString(text), "\n", "<br>"))
	var buf bytes.Buffer
	err := resumeTemplate.Execute(&buf, struct {
		JobID string
		Body  template.HTML
		Date  string
	}{
		JobID: jobID,
		Body:  body,
		Date:  time.Now().Format("1/2/2006"),
	})
	if err != nil {
		return nil, fmt.Errorf("render resume failed: %w", err)
	}
	return buf.Bytes(), nil
}
