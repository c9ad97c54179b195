package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory backend for demos and testing. It records every
// request and can be told to fail.
type Fake struct {
	mu        sync.Mutex
	Generated []GenerateRequest
	Saved     []SaveRequest
	Sent      []EmailRequest

	GenerateErr error
	SaveErr     error
	SendErr     error
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Generate(_ context.Context, req GenerateRequest) (GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GenerateErr != nil {
		return GenerateResult{}, f.GenerateErr
	}
	f.Generated = append(f.Generated, req)
	id := uuid.New().String()
	return GenerateResult{
		DocumentID:  id,
		DocumentURL: "https://documents.invalid/" + id + ".pdf",
	}, nil
}

func (f *Fake) Save(_ context.Context, req SaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.Saved = append(f.Saved, req)
	return nil
}

func (f *Fake) Send(_ context.Context, req EmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Sent = append(f.Sent, req)
	return nil
}
