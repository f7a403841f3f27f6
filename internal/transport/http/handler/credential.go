package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GenJess/file-chat-sage/internal/app"
	"github.com/GenJess/file-chat-sage/internal/transport/http/response"
)

type CredentialHandler struct {
	credentials *app.CredentialService
	workspace   *app.WorkspaceService
}

type SubmitCredentialRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func NewCredentialHandler(credentials *app.CredentialService, workspace *app.WorkspaceService) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, workspace: workspace}
}

// Submit stores the knowledge-service credential and immediately resolves the
// workspace around it, mirroring what setting a key has always triggered.
func (h *CredentialHandler) Submit(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SubmitCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.credentials.Submit(userID, req.APIKey); err != nil {
		if errors.Is(err, app.ErrCredentialEmpty) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store credential failed")
		return
	}

	base, documents, err := h.workspace.Initialize(c.Request.Context(), userID)
	if err != nil {
		// The credential is stored; only the workspace is unavailable.
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "failed to initialize knowledge base")
		return
	}

	response.OK(c, gin.H{
		"knowledge_base": base,
		"documents":      documents,
	})
}

// Status reports whether a credential is set, never the value itself.
func (h *CredentialHandler) Status(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	value, set := h.credentials.Get(userID)
	if !set {
		if loaded, okLoad, err := h.credentials.Load(userID); err == nil && okLoad {
			value, set = loaded, true
		}
	}

	masked := ""
	if set {
		masked = maskCredential(value)
	}
	response.OK(c, gin.H{"set": set, "masked": masked})
}

func maskCredential(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
