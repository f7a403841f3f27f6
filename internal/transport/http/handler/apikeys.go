package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GenJess/file-chat-sage/internal/app"
	"github.com/GenJess/file-chat-sage/internal/transport/http/response"
)

type APIKeyHandler struct {
	keys *app.APIKeyService
}

type CreateAPIKeyRequest struct {
	ServiceName string `json:"service_name" binding:"required,max=64"`
	Key         string `json:"key" binding:"required,max=256"`
}

func NewAPIKeyHandler(keys *app.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	record, err := h.keys.Create(userID, req.ServiceName, req.Key)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save api key failed")
		return
	}

	response.OK(c, gin.H{
		"id":           record.ID,
		"service_name": record.ServiceName,
		"created_at":   record.CreatedAt,
	})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	keys, err := h.keys.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list api keys failed")
		return
	}
	response.OK(c, gin.H{"keys": keys})
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	keyID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || keyID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid key id")
		return
	}

	if err := h.keys.Delete(userID, uint(keyID64)); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAPIKeyNotFound):
			response.Error(c, http.StatusNotFound, response.CodeAPIKeyNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete api key failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_key_id": uint(keyID64)})
}
