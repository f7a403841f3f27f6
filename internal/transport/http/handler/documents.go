package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/GenJess/file-chat-sage/internal/app"
	"github.com/GenJess/file-chat-sage/internal/transport/http/response"
)

const maxUploadSize = 32 << 20 // per request

type DocumentHandler struct {
	workspace   *app.WorkspaceService
	chat        *app.ChatService
	credentials *app.CredentialService
}

func NewDocumentHandler(workspace *app.WorkspaceService, chat *app.ChatService, credentials *app.CredentialService) *DocumentHandler {
	return &DocumentHandler{workspace: workspace, chat: chat, credentials: credentials}
}

// Sync resolves the knowledge base for the stored credential and refreshes
// the document mirror from the remote side.
func (h *DocumentHandler) Sync(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	// A persisted credential may not have been loaded yet, e.g. on the first
	// sync after a restart. Loading notifies the workspace.
	if _, set := h.credentials.Get(userID); !set {
		if _, _, err := h.credentials.Load(userID); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load credential failed")
			return
		}
	}

	base, documents, err := h.workspace.Initialize(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, app.ErrNoCredential) {
			response.Error(c, http.StatusBadRequest, response.CodeCredentialMissing, err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "failed to initialize knowledge base")
		return
	}

	response.OK(c, gin.H{
		"knowledge_base": base,
		"documents":      documents,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	response.OK(c, gin.H{"documents": h.workspace.Documents(userID)})
}

// Upload forwards the request's files to the knowledge base, one at a time in
// form order. On success a system notice lands in the transcript.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
		return
	}

	files := make([]app.UploadFile, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
			return
		}

		mimeType := part.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		files = append(files, app.UploadFile{
			Name:     part.Filename,
			Size:     int64(len(data)),
			MimeType: mimeType,
			Content:  bytes.NewReader(data),
		})
	}

	uploaded, err := h.workspace.Upload(c.Request.Context(), userID, files)
	if err != nil {
		var uploadErr *app.UploadError
		switch {
		case errors.Is(err, app.ErrNoCredential):
			response.Error(c, http.StatusBadRequest, response.CodeCredentialMissing, err.Error())
		case errors.Is(err, app.ErrNoKnowledgeBase):
			response.Error(c, http.StatusBadRequest, response.CodeKnowledgeBaseMissing, err.Error())
		case errors.As(err, &uploadErr):
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, uploadErr.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	names := make([]string, len(uploaded))
	for i, doc := range uploaded {
		names[i] = doc.Name
	}
	h.chat.AddNotice(c.Request.Context(), userID, fmt.Sprintf(
		"%d new document(s) added to the knowledge base: %s",
		len(uploaded), strings.Join(names, ", "),
	))

	response.OK(c, gin.H{"documents": uploaded})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	documentID := c.Param("id")
	if documentID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	deleted, err := h.workspace.Delete(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoCredential):
			response.Error(c, http.StatusBadRequest, response.CodeCredentialMissing, err.Error())
		case errors.Is(err, app.ErrNoKnowledgeBase):
			response.Error(c, http.StatusBadRequest, response.CodeKnowledgeBaseMissing, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "delete failed")
		}
		return
	}

	h.chat.AddNotice(c.Request.Context(), userID, fmt.Sprintf(
		"Document removed from knowledge base: %s", deleted.Name,
	))

	response.OK(c, gin.H{"deleted_document_id": deleted.ID})
}
