package llm

import (
	"context"
	"strings"

	"github.com/Towich/mail-ads-ai/pkg/chat"
)

// Tool is the model-facing description of an available tool. Parameters is a
// JSON-Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ChatRequest is a single model invocation. Tools may be empty, in which
// case the model never requests tool calls.
type ChatRequest struct {
	Messages    []chat.Message
	Tools       []Tool
	Temperature float64
}

// Choice is one candidate completion.
type Choice struct {
	Message chat.Message
}

// Usage tracks token consumption for a call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatResponse is the model's reply. Zero choices is a valid response; the
// caller decides how to surface it. Transport failures are returned as
// errors.
type ChatResponse struct {
	Choices []Choice
	Usage   *Usage
}

// Client is the model capability the orchestration loop talks to.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// IsRetryableError reports whether an error is worth retrying: rate limits,
// server errors and transient network failures.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
