package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/generateDocument" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.TemplateID != "kuendigung_v1" {
			t.Errorf("template id = %q", req.TemplateID)
		}
		json.NewEncoder(w).Encode(GenerateResult{DocumentID: "doc-1", DocumentURL: "https://x/doc-1.pdf"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Generate(context.Background(), GenerateRequest{
		TemplateID: "kuendigung_v1",
		Data:       map[string]any{"name": "Anna"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.DocumentID != "doc-1" {
		t.Errorf("document id = %q", result.DocumentID)
	}
}

func TestClient_ErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template missing", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "422") || !strings.Contains(got, "template missing") {
		t.Errorf("error = %q, want status and body", got)
	}
}

func TestClient_SaveAndSend(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Save(context.Background(), SaveRequest{TemplateID: "t", Status: "draft"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Send(context.Background(), EmailRequest{DocumentID: "doc-1", Recipient: "a@b.de"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(paths) != 2 || paths[0] != "/functions/saveDocument" || paths[1] != "/functions/sendDocumentEmail" {
		t.Errorf("paths = %v", paths)
	}
}

func TestFake_RecordsAndFails(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	result, err := f.Generate(ctx, GenerateRequest{TemplateID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentID == "" || result.DocumentURL == "" {
		t.Error("fake returned empty result")
	}
	if len(f.Generated) != 1 {
		t.Errorf("Generated = %d requests", len(f.Generated))
	}

	f.Save(ctx, SaveRequest{TemplateID: "t1"})
	f.Send(ctx, EmailRequest{DocumentID: result.DocumentID})
	if len(f.Saved) != 1 || len(f.Sent) != 1 {
		t.Error("fake did not record save/send")
	}

	f.GenerateErr = errors.New("down")
	if _, err := f.Generate(ctx, GenerateRequest{}); err == nil {
		t.Error("expected configured error")
	}
	if len(f.Generated) != 1 {
		t.Error("failed request must not be recorded")
	}
}
