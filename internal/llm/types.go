package llm

import "context"

// Request is one multimodal reasoning call: a text prompt plus an optional
// page snapshot.
type Request struct {
	Prompt   string
	Image    []byte
	MimeType string
}

// Client sends a request to a reasoning service and returns its raw text.
type Client interface {
	Decide(ctx context.Context, req Request) (string, error)
}
