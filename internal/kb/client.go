package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "xi-api-key"

// KnowledgeBase is a remote container record.
type KnowledgeBase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DocumentRecord is a remote document as the service reports it. Any field
// except ID may be absent.
type DocumentRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	UploadDate string `json:"upload_date"`
}

// Turn is one prior conversation turn sent as context. The remote protocol
// uses "agent" where we use "assistant"; callers map roles before calling.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *Client) ListKnowledgeBases(ctx context.Context, apiKey string) ([]KnowledgeBase, error) {
	var parsed struct {
		KnowledgeBases []KnowledgeBase `json:"knowledge_bases"`
	}
	if err := c.doJSON(ctx, apiKey, http.MethodGet, "/knowledge-bases", nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.KnowledgeBases, nil
}

func (c *Client) CreateKnowledgeBase(ctx context.Context, apiKey, name, description string) (KnowledgeBase, error) {
	reqBody := map[string]string{
		"name":        name,
		"description": description,
	}
	var created KnowledgeBase
	if err := c.doJSON(ctx, apiKey, http.MethodPost, "/knowledge-bases", reqBody, &created); err != nil {
		return KnowledgeBase{}, err
	}
	return created, nil
}

func (c *Client) ListDocuments(ctx context.Context, apiKey, knowledgeBaseID string) ([]DocumentRecord, error) {
	var parsed struct {
		Documents []DocumentRecord `json:"documents"`
	}
	path := fmt.Sprintf("/knowledge-bases/%s/documents", knowledgeBaseID)
	if err := c.doJSON(ctx, apiKey, http.MethodGet, path, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Documents, nil
}

// UploadDocument sends one file as multipart form data and returns the
// server-assigned document id.
func (c *Client) UploadDocument(ctx context.Context, apiKey, knowledgeBaseID, fileName string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("build upload form failed: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy upload content failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish upload form failed: %w", err)
	}

	url := fmt.Sprintf("%s/knowledge-bases/%s/documents/create", c.baseURL, knowledgeBaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.send(req)
	if err != nil {
		return "", err
	}

	var parsed struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse upload response failed: %w", err)
	}
	if parsed.DocumentID == "" {
		return "", fmt.Errorf("upload response carries no document_id")
	}
	return parsed.DocumentID, nil
}

func (c *Client) DeleteDocument(ctx context.Context, apiKey, knowledgeBaseID, documentID string) error {
	path := fmt.Sprintf("/knowledge-bases/%s/documents/%s", knowledgeBaseID, documentID)
	return c.doJSON(ctx, apiKey, http.MethodDelete, path, nil, nil)
}

// Converse asks a question scoped to the knowledge base. The returned answer
// is the response's "answer" field, falling back to "text"; an empty string
// means the service answered without usable text.
func (c *Client) Converse(ctx context.Context, apiKey, knowledgeBaseID, query string, history []Turn) (string, error) {
	if history == nil {
		history = []Turn{}
	}
	reqBody := map[string]interface{}{
		"query":                query,
		"conversation_history": history,
	}
	var parsed struct {
		Answer string `json:"answer"`
		Text   string `json:"text"`
	}
	path := fmt.Sprintf("/knowledge-bases/%s/conversation", knowledgeBaseID)
	if err := c.doJSON(ctx, apiKey, http.MethodPost, path, reqBody, &parsed); err != nil {
		return "", err
	}
	if parsed.Answer != "" {
		return parsed.Answer, nil
	}
	return parsed.Text, nil
}

func (c *Client) doJSON(ctx context.Context, apiKey, method, path string, reqBody, out interface{}) error {
	var reader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response failed: %w", err)
	}
	return nil
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read knowledge service response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("knowledge service status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
