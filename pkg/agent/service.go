package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Towich/mail-ads-ai/pkg/chat"
	"github.com/Towich/mail-ads-ai/pkg/llm"
	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

const (
	// DefaultMaxIterations bounds the model-call/tool-dispatch cycles per
	// request so runaway tool use stays bounded in cost.
	DefaultMaxIterations = 25

	// DefaultHistoryWindow is how many prior conversation entries are
	// presented to the model on each call.
	DefaultHistoryWindow = 5

	// DefaultTemperature is the generation temperature when none is set.
	DefaultTemperature = 0.7

	// noResponseMessage is the fixed user-visible text for a reply that
	// carried no usable choice.
	noResponseMessage = "Failed to get a response from the model."
)

// Config holds agent service configuration.
type Config struct {
	LLM           llm.Client
	Registry      *toolexec.Registry
	Logger        zerolog.Logger
	Temperature   float64
	MaxIterations int
	HistoryWindow int
	SystemPrompt  string // optional persona override for the general mode
}

// Service drives the tool-calling conversation loop: it sends the bounded
// history and tool descriptors to the model, dispatches requested tool calls
// sequentially, and repeats until the model answers without tool requests or
// the iteration cap is reached.
type Service struct {
	llm           llm.Client
	registry      *toolexec.Registry
	history       *chat.History
	logger        zerolog.Logger
	temperature   float64
	maxIterations int
	historyWindow int
	systemPrompt  string
}

// New creates an agent service.
func New(cfg Config) (*Service, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}

	return &Service{
		llm:           cfg.LLM,
		registry:      cfg.Registry,
		history:       chat.NewHistory(),
		logger:        cfg.Logger,
		temperature:   temperature,
		maxIterations: maxIterations,
		historyWindow: historyWindow,
		systemPrompt:  cfg.SystemPrompt,
	}, nil
}

// History exposes the persistent conversation state of the general mode.
func (s *Service) History() *chat.History {
	return s.history
}

// ProcessQuery runs one general-mode request to convergence. Failures are
// returned as user-visible text; the error is non-nil only when ctx is
// cancelled, in which case history is left unfinalized.
func (s *Service) ProcessQuery(ctx context.Context, query string) (string, error) {
	logger := s.logger.With().Str("request_id", uuid.NewString()).Logger()

	s.history.Append(chat.User(query))

	messages := make([]chat.Message, 0, s.historyWindow+1)
	messages = append(messages, chat.System(s.generalSystemPrompt()))
	messages = append(messages, s.history.Tail(s.historyWindow)...)

	content, record, err := s.runLoop(ctx, logger, messages)
	if err != nil {
		return "", err
	}

	if record {
		s.history.Append(chat.Assistant(content))
	}
	return content, nil
}

// ProcessDirect makes a single model call with no tools and no carried
// history. Used for pre-assembled prompts that already contain their
// context.
func (s *Service) ProcessDirect(ctx context.Context, prompt string) (string, error) {
	response, err := s.llm.Chat(ctx, llm.ChatRequest{
		Messages:    []chat.Message{chat.User(prompt)},
		Temperature: s.temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Error().Err(err).Msg("Direct model call failed")
		return fmt.Sprintf("Failed to process the request: %v", err), nil
	}
	if len(response.Choices) == 0 {
		return noResponseMessage, nil
	}
	return response.Choices[0].Message.Content, nil
}

// Review runs the code-review specialization: a fresh one-shot conversation
// with the review persona and the payload to analyze, through the same tool
// loop. The persistent conversation history is not touched.
func (s *Service) Review(ctx context.Context, payload string) (string, error) {
	logger := s.logger.With().Str("request_id", uuid.NewString()).Str("mode", "review").Logger()

	messages := []chat.Message{
		chat.System(reviewSystemPrompt),
		chat.User(reviewPrompt(payload)),
	}

	content, _, err := s.runLoop(ctx, logger, messages)
	return content, err
}

// runLoop is the convergence loop shared by the general and review modes.
// record reports whether the returned content is a finalizable answer
// (converged or iteration cap reached) as opposed to a failure message.
func (s *Service) runLoop(ctx context.Context, logger zerolog.Logger, messages []chat.Message) (content string, record bool, err error) {
	tools := s.modelTools()

	for iteration := 1; iteration <= s.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		default:
		}

		logger.Debug().
			Int("iteration", iteration).
			Int("messages", len(messages)).
			Int("tools", len(tools)).
			Msg("Calling model")

		response, chatErr := s.llm.Chat(ctx, llm.ChatRequest{
			Messages:    messages,
			Tools:       tools,
			Temperature: s.temperature,
		})
		if chatErr != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			logger.Error().Err(chatErr).Msg("Model call failed")
			return fmt.Sprintf("Failed to process the request: %v", chatErr), false, nil
		}

		if len(response.Choices) == 0 {
			logger.Error().Msg("Model response carried no usable choice")
			return noResponseMessage, false, nil
		}

		msg := response.Choices[0].Message
		content = msg.Content

		if len(msg.ToolCalls) == 0 {
			logger.Info().Int("iteration", iteration).Msg("Final answer received")
			return content, true, nil
		}

		logger.Info().
			Int("iteration", iteration).
			Int("tool_calls", len(msg.ToolCalls)).
			Msg("Model requested tool calls")

		// The tool-requesting message precedes its results in history
		messages = append(messages, msg)

		for _, call := range msg.ToolCalls {
			if call.ID == "" {
				// Documented asymmetry: no id means no tool message; the
				// model has to tolerate the gap.
				logger.Warn().Str("tool", call.Name).Msg("Tool call carries no id, skipping")
				continue
			}

			result := s.dispatch(ctx, logger, call)
			messages = append(messages, chat.ToolResponse(call.ID, encodeResult(result)))
		}
	}

	logger.Warn().
		Int("max_iterations", s.maxIterations).
		Msg("Iteration cap reached, returning last content")
	return content, true, nil
}

// dispatch parses a tool call's arguments and invokes the registry. Every
// failure mode becomes a Result the model can react to.
func (s *Service) dispatch(ctx context.Context, logger zerolog.Logger, call chat.ToolCall) toolexec.Result {
	params := map[string]interface{}{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
			logger.Error().Err(err).Str("tool", call.Name).Msg("Malformed tool arguments")
			return toolexec.Result{
				Success: false,
				Error:   fmt.Sprintf("malformed tool arguments: %v", err),
			}
		}
	}

	logger.Info().Str("tool", call.Name).Str("id", call.ID).Msg("Dispatching tool call")
	return s.registry.Execute(ctx, call.Name, params)
}

// modelTools converts registry descriptors into the model-facing tool list.
func (s *Service) modelTools() []llm.Tool {
	descriptors := s.registry.Descriptors()
	tools := make([]llm.Tool, 0, len(descriptors))
	for _, desc := range descriptors {
		tools = append(tools, llm.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.Schema,
		})
	}
	return tools
}

// encodeResult serializes a tool result for the tool message content.
func encodeResult(result toolexec.Result) string {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to encode tool result: %v"}`, err)
	}
	return string(payload)
}
