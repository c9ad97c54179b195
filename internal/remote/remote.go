// Package remote holds the clients for the opaque backend collaborators:
// document generation, server-side document persistence, and email delivery.
// The form engine only passes export-shaped data across these boundaries —
// it never retries, renders, or interprets the results.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenerateRequest is the document-generation input.
type GenerateRequest struct {
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data"`
	Options    map[string]any `json:"options,omitempty"`
}

// GenerateResult is the document-generation output.
type GenerateResult struct {
	DocumentID  string `json:"document_id"`
	DocumentURL string `json:"document_url"`
}

// SaveRequest is the server-side document persistence input.
type SaveRequest struct {
	TemplateID   string         `json:"template_id"`
	DocumentName string         `json:"document_name"`
	Data         map[string]any `json:"data"`
	Status       string         `json:"status"`
}

// EmailRequest asks the backend to deliver a generated document by mail.
type EmailRequest struct {
	DocumentID string `json:"document_id"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject,omitempty"`
}

// Generator produces the final document. Generation failure is the one
// remote error surfaced to the user as a blocking failure.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// DocumentSaver persists documents server-side. Fire-and-forget from the
// form engine's perspective — callers log errors instead of surfacing them.
type DocumentSaver interface {
	Save(ctx context.Context, req SaveRequest) error
}

// Mailer sends a generated document by email.
type Mailer interface {
	Send(ctx context.Context, req EmailRequest) error
}

// Client talks to the backend functions over HTTP. It implements Generator,
// DocumentSaver, and Mailer.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var result GenerateResult
	if err := c.post(ctx, "/functions/generateDocument", req, &result); err != nil {
		return GenerateResult{}, fmt.Errorf("generating document: %w", err)
	}
	return result, nil
}

func (c *Client) Save(ctx context.Context, req SaveRequest) error {
	if err := c.post(ctx, "/functions/saveDocument", req, nil); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (c *Client) Send(ctx context.Context, req EmailRequest) error {
	if err := c.post(ctx, "/functions/sendDocumentEmail", req, nil); err != nil {
		return fmt.Errorf("sending document email: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
