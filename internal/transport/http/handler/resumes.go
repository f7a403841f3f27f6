package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GenJess/file-chat-sage/internal/app"
	"github.com/GenJess/file-chat-sage/internal/transport/http/response"
)

const maxImportPDFSize = 10 << 20

type ResumeHandler struct {
	resumes *app.ResumeService
	keys    *app.APIKeyService
}

type GenerateResumeRequest struct {
	Text        string `json:"text" binding:"required"`
	JobID       string `json:"job_id" binding:"required,max=256"`
	ServiceName string `json:"service_name"`
}

func NewResumeHandler(resumes *app.ResumeService, keys *app.APIKeyService) *ResumeHandler {
	return &ResumeHandler{resumes: resumes, keys: keys}
}

func (h *ResumeHandler) Generate(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req GenerateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing required fields: text, job_id")
		return
	}

	result, err := h.resumes.Generate(c.Request.Context(), app.GenerateResumeInput{
		UserID: userID,
		JobID:  req.JobID,
		Text:   req.Text,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "generate resume failed")
		return
	}

	// Which stored key produced this resume is informational only.
	if req.ServiceName != "" {
		_ = h.keys.TouchLastUsed(userID, req.ServiceName)
	}

	response.OK(c, gin.H{
		"success":   true,
		"resume":    result.Resume,
		"file_name": result.FileName,
	})
}

// Import accepts an existing resume PDF and stores its extracted text.
func (h *ResumeHandler) Import(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	jobID := c.PostForm("job_id")
	if jobID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing job_id")
		return
	}

	part, err := c.FormFile("file")
	if err != nil || part.Size > maxImportPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid pdf upload")
		return
	}
	f, err := part.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read pdf failed")
		return
	}
	defer f.Close()

	result, err := h.resumes.ImportPDF(c.Request.Context(), userID, jobID, f)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no extractable text in pdf")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "import resume failed")
		return
	}

	response.OK(c, gin.H{
		"success":   true,
		"resume":    result.Resume,
		"file_name": result.FileName,
	})
}

func (h *ResumeHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	resumes, err := h.resumes.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list resumes failed")
		return
	}
	response.OK(c, gin.H{"resumes": resumes})
}

func (h *ResumeHandler) Download(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	resumeID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resumeID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid resume id")
		return
	}

	content, fileName, err := h.resumes.Download(c.Request.Context(), userID, uint(resumeID64))
	if err != nil {
		if errors.Is(err, app.ErrResumeNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeResumeNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "download resume failed")
		return
	}
	defer content.Close()

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Header("Content-Type", "text/html")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, content)
}

func (h *ResumeHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	resumeID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resumeID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid resume id")
		return
	}

	if err := h.resumes.Delete(c.Request.Context(), userID, uint(resumeID64)); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrResumeNotFound):
			response.Error(c, http.StatusNotFound, response.CodeResumeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete resume failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_resume_id": uint(resumeID64)})
}
