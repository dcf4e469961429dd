package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Towich/mail-ads-ai/pkg/chat"
	"github.com/Towich/mail-ads-ai/pkg/llm"
	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// scriptedClient replays a fixed sequence of responses and records every
// request it saw.
type scriptedClient struct {
	responses []*llm.ChatResponse
	errs      []error
	requests  []llm.ChatRequest
}

func (c *scriptedClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1

	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, errors.New("no scripted response left")
	}
	return c.responses[i], nil
}

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.Choice{{Message: chat.Assistant(content)}},
	}
}

func toolCallResponse(calls ...chat.ToolCall) *llm.ChatResponse {
	msg := chat.Message{Role: chat.RoleAssistant, ToolCalls: calls}
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: msg}}}
}

func newTestService(t *testing.T, client llm.Client, opts ...func(*Config)) *Service {
	t.Helper()

	registry := toolexec.NewRegistry(zerolog.Nop())
	err := registry.Register(toolexec.Definition{
		Name:        "lookup",
		Description: "looks up a value",
		Parameters: []toolexec.Parameter{
			{Name: "key", Type: "string", Description: "key to look up", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("value-of-%v", params["key"]), nil
		},
	})
	require.NoError(t, err)

	cfg := Config{
		LLM:      client,
		Registry: registry,
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := New(cfg)
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	t.Run("should require a client and a registry", func(t *testing.T) {
		_, err := New(Config{Registry: toolexec.NewRegistry(zerolog.Nop())})
		assert.Error(t, err)

		_, err = New(Config{LLM: &scriptedClient{}})
		assert.Error(t, err)
	})

	t.Run("should reject an out-of-range temperature", func(t *testing.T) {
		_, err := New(Config{
			LLM:         &scriptedClient{},
			Registry:    toolexec.NewRegistry(zerolog.Nop()),
			Temperature: 1.5,
		})
		assert.Error(t, err)
	})
}

func TestProcessQuery(t *testing.T) {
	t.Run("should answer a tool-free response in one pass", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("the answer")}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "the answer", answer)
		require.Len(t, client.requests, 1)

		// both the user turn and the final answer are recorded
		msgs := svc.History().Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, chat.RoleUser, msgs[0].Role)
		assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
		assert.Equal(t, "the answer", msgs[1].Content)
	})

	t.Run("should expose registered tools to the model", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("ok")}}
		svc := newTestService(t, client)

		_, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)

		require.Len(t, client.requests[0].Tools, 1)
		assert.Equal(t, "lookup", client.requests[0].Tools[0].Name)
	})

	t.Run("should dispatch tool calls and feed results back in order", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{
			toolCallResponse(
				chat.ToolCall{ID: "call-1", Name: "lookup", Arguments: `{"key":"a"}`},
				chat.ToolCall{ID: "call-2", Name: "lookup", Arguments: `{"key":"b"}`},
			),
			textResponse("done"),
		}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "done", answer)
		require.Len(t, client.requests, 2)

		// second request carries the assistant turn plus one tool message
		// per call, tagged with the matching ids, in emission order
		second := client.requests[1].Messages
		n := len(second)
		require.GreaterOrEqual(t, n, 3)

		assert.Equal(t, chat.RoleAssistant, second[n-3].Role)
		assert.Equal(t, chat.RoleTool, second[n-2].Role)
		assert.Equal(t, "call-1", second[n-2].ToolCallID)
		assert.Contains(t, second[n-2].Content, "value-of-a")
		assert.Equal(t, chat.RoleTool, second[n-1].Role)
		assert.Equal(t, "call-2", second[n-1].ToolCallID)
		assert.Contains(t, second[n-1].Content, "value-of-b")
	})

	t.Run("should skip tool calls without an id", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{
			toolCallResponse(
				chat.ToolCall{ID: "", Name: "lookup", Arguments: `{"key":"a"}`},
				chat.ToolCall{ID: "call-2", Name: "lookup", Arguments: `{"key":"b"}`},
			),
			textResponse("done"),
		}}
		svc := newTestService(t, client)

		_, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)

		second := client.requests[1].Messages
		toolMsgs := []chat.Message{}
		for _, msg := range second {
			if msg.Role == chat.RoleTool {
				toolMsgs = append(toolMsgs, msg)
			}
		}
		require.Len(t, toolMsgs, 1)
		assert.Equal(t, "call-2", toolMsgs[0].ToolCallID)
	})

	t.Run("should feed an unknown tool failure back to the model", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{
			toolCallResponse(chat.ToolCall{ID: "call-1", Name: "nonexistent", Arguments: `{}`}),
			textResponse("recovered"),
		}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "recovered", answer)

		second := client.requests[1].Messages
		last := second[len(second)-1]
		assert.Equal(t, chat.RoleTool, last.Role)
		assert.Contains(t, last.Content, "unknown tool: nonexistent")
		assert.Contains(t, last.Content, `"success":false`)
	})

	t.Run("should convert malformed arguments into a failed result", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{
			toolCallResponse(chat.ToolCall{ID: "call-1", Name: "lookup", Arguments: `{not json`}),
			textResponse("recovered"),
		}}
		svc := newTestService(t, client)

		_, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)

		second := client.requests[1].Messages
		last := second[len(second)-1]
		assert.Contains(t, last.Content, "malformed tool arguments")
	})

	t.Run("should return the last content without error at the iteration cap", func(t *testing.T) {
		responses := []*llm.ChatResponse{}
		for i := 0; i < 3; i++ {
			resp := toolCallResponse(chat.ToolCall{ID: fmt.Sprintf("call-%d", i), Name: "lookup", Arguments: `{"key":"a"}`})
			resp.Choices[0].Message.Content = fmt.Sprintf("thinking %d", i)
			responses = append(responses, resp)
		}
		client := &scriptedClient{responses: responses}
		svc := newTestService(t, client, func(cfg *Config) { cfg.MaxIterations = 3 })

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "thinking 2", answer)
		assert.Len(t, client.requests, 3)

		// capped content is still recorded as the assistant turn
		msgs := svc.History().Messages()
		assert.Equal(t, "thinking 2", msgs[len(msgs)-1].Content)
	})

	t.Run("should turn a transport failure into user-visible text", func(t *testing.T) {
		client := &scriptedClient{errs: []error{errors.New("connection refused")}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Contains(t, answer, "Failed to process the request")
		assert.Contains(t, answer, "connection refused")

		// the failure text is not recorded as an assistant turn
		msgs := svc.History().Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, chat.RoleUser, msgs[0].Role)
	})

	t.Run("should return fixed text for a response with no choices", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{{Choices: nil}}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, noResponseMessage, answer)
		assert.Equal(t, 1, svc.History().Len())
	})

	t.Run("should return the context error on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("never")}}
		svc := newTestService(t, client)

		_, err := svc.ProcessQuery(ctx, "question")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("should bound the presented history to the window", func(t *testing.T) {
		client := &scriptedClient{}
		for i := 0; i < 10; i++ {
			client.responses = append(client.responses, textResponse(fmt.Sprintf("a%d", i)))
		}
		svc := newTestService(t, client, func(cfg *Config) { cfg.HistoryWindow = 3 })

		for i := 0; i < 5; i++ {
			_, err := svc.ProcessQuery(context.Background(), fmt.Sprintf("q%d", i))
			require.NoError(t, err)
		}

		last := client.requests[len(client.requests)-1].Messages
		// system prompt plus at most three history entries
		assert.LessOrEqual(t, len(last), 4)
		assert.Equal(t, chat.RoleSystem, last[0].Role)
	})
}

func TestProcessDirect(t *testing.T) {
	t.Run("should make a single call without tools or history", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("direct answer")}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessDirect(context.Background(), "summarize this")
		require.NoError(t, err)
		assert.Equal(t, "direct answer", answer)

		require.Len(t, client.requests, 1)
		assert.Empty(t, client.requests[0].Tools)
		assert.Equal(t, 0, svc.History().Len())
	})

	t.Run("should turn a failure into user-visible text", func(t *testing.T) {
		client := &scriptedClient{errs: []error{errors.New("boom")}}
		svc := newTestService(t, client)

		answer, err := svc.ProcessDirect(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Contains(t, answer, "Failed to process the request")
	})
}

func TestReview(t *testing.T) {
	t.Run("should run an isolated conversation without touching history", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("review text")}}
		svc := newTestService(t, client)

		review, err := svc.Review(context.Background(), "diff payload")
		require.NoError(t, err)
		assert.Equal(t, "review text", review)
		assert.Equal(t, 0, svc.History().Len())

		msgs := client.requests[0].Messages
		require.Len(t, msgs, 2)
		assert.Equal(t, chat.RoleSystem, msgs[0].Role)
		assert.Contains(t, msgs[1].Content, "diff payload")
	})

	t.Run("should use the review loop with tools available", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{
			toolCallResponse(chat.ToolCall{ID: "call-1", Name: "lookup", Arguments: `{"key":"ctx"}`}),
			textResponse("informed review"),
		}}
		svc := newTestService(t, client)

		review, err := svc.Review(context.Background(), "payload")
		require.NoError(t, err)
		assert.Equal(t, "informed review", review)
		assert.NotEmpty(t, client.requests[0].Tools)
	})
}

func TestSystemPrompt(t *testing.T) {
	t.Run("should enumerate registered tools", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("ok")}}
		svc := newTestService(t, client)

		_, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)

		system := client.requests[0].Messages[0]
		require.Equal(t, chat.RoleSystem, system.Role)
		assert.Contains(t, system.Content, "**lookup**")
	})

	t.Run("should honor a persona override", func(t *testing.T) {
		client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("ok")}}
		svc := newTestService(t, client, func(cfg *Config) { cfg.SystemPrompt = "custom persona" })

		_, err := svc.ProcessQuery(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "custom persona", client.requests[0].Messages[0].Content)
	})
}
