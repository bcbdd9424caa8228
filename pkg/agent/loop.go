package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maisonlane/concierge/internal/observability"
	"github.com/maisonlane/concierge/internal/tracing"
	"github.com/maisonlane/concierge/pkg/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// loopState tracks where an understanding turn is in its lifecycle
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateToolDispatch
	stateDone
	stateDoneByLimit
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "awaiting_model"
	case stateToolDispatch:
		return "tool_dispatch"
	case stateDone:
		return "done"
	case stateDoneByLimit:
		return "done_by_limit"
	default:
		return "unknown"
	}
}

const (
	defaultMaxTurns   = 10
	defaultMaxRetries = 3
	defaultLLMTimeout = 60 * time.Second
)

// LoopConfig configures the understanding loop
type LoopConfig struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// MaxTurns bounds model invocations per user turn
	MaxTurns int
	// MaxRetries bounds attempts per model invocation
	MaxRetries int
	// LLMTimeout bounds each individual model invocation
	LLMTimeout time.Duration
}

// Loop drives repeated model invocations interleaved with tool dispatch
// until the model produces a final answer or the iteration ceiling is hit.
type Loop struct {
	provider LLMProvider
	executor *tools.Executor
	registry *tools.Registry
	cfg      LoopConfig
	logger   zerolog.Logger
}

// Outcome is the result of one understanding turn
type Outcome struct {
	// Response is the final assistant message text
	Response string
	// ToolsInvoked lists tool names in dispatch order, one entry per call
	ToolsInvoked []string
	// Iterations counts model invocations consumed by the turn
	Iterations int
	// LimitReached marks turns that ended at the iteration ceiling
	LimitReached bool
	// Delta is the transcript produced by the turn beyond the user message:
	// assistant tool-call messages, tool results, and the final reply, in order
	Delta []Message
	Usage *TokenUsage
}

// NewLoop creates an understanding loop
func NewLoop(provider LLMProvider, executor *tools.Executor, registry *tools.Registry, cfg LoopConfig) (*Loop, error) {
	observability.EnsureRegistered()

	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = defaultLLMTimeout
	}

	return &Loop{
		provider: provider,
		executor: executor,
		registry: registry,
		cfg:      cfg,
		logger:   log.Logger,
	}, nil
}

// Run processes one user turn against the given conversation history
func (l *Loop) Run(ctx context.Context, history []Message, userMessage string) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartSpan(
		ctx,
		"concierge.agent",
		"agent.understanding",
		attribute.String("model", l.cfg.Model),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, l.logger)

	working := make([]Message, 0, len(history)+1)
	working = append(working, history...)
	working = append(working, Message{Role: "user", Content: userMessage})

	toolSchemas := l.buildToolSchemas()

	outcome := &Outcome{}
	state := stateAwaitingModel

	for iteration := 0; iteration < l.cfg.MaxTurns; iteration++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		outcome.Iterations++

		response, err := l.callModelWithRetry(ctx, working, toolSchemas)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.RecordLoopIterations(outcome.Iterations, false)
			return nil, err
		}
		outcome.Usage = response.Usage

		if len(response.ToolCalls) == 0 {
			state = stateDone
			outcome.Response = response.Content
			outcome.Delta = append(outcome.Delta, Message{Role: "assistant", Content: response.Content})
			break
		}

		state = stateToolDispatch
		logger.Debug().
			Int("iteration", outcome.Iterations).
			Int("tool_calls", len(response.ToolCalls)).
			Str("state", state.String()).
			Msg("Dispatching tool calls")

		assistantMsg := Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		}
		working = append(working, assistantMsg)
		outcome.Delta = append(outcome.Delta, assistantMsg)

		// Sequential dispatch; results re-enter context in issue order so the
		// model sees a deterministic transcript.
		for _, toolCall := range response.ToolCalls {
			result := l.executor.Execute(ctx, tools.Call{
				ID:        toolCall.ID,
				Name:      toolCall.Name,
				Arguments: toolCall.Parameters,
			})
			outcome.ToolsInvoked = append(outcome.ToolsInvoked, toolCall.Name)

			toolMsg := Message{
				Role:       "tool",
				Content:    renderToolResult(result),
				ToolCallID: result.CallID,
				Metadata:   map[string]interface{}{"tool_name": toolCall.Name},
			}
			working = append(working, toolMsg)
			outcome.Delta = append(outcome.Delta, toolMsg)
		}

		state = stateAwaitingModel
	}

	if state != stateDone {
		state = stateDoneByLimit
		outcome.LimitReached = true
		outcome.Response = l.fallbackResponse(outcome)
		outcome.Delta = append(outcome.Delta, Message{Role: "assistant", Content: outcome.Response})
		logger.Warn().
			Int("iterations", outcome.Iterations).
			Msg("Understanding loop hit iteration ceiling")
	}

	observability.RecordLoopIterations(outcome.Iterations, outcome.LimitReached)
	span.SetAttributes(
		attribute.Int("iterations", outcome.Iterations),
		attribute.String("terminal_state", state.String()),
	)

	return outcome, nil
}

// buildToolSchemas advertises every registered tool to the model
func (l *Loop) buildToolSchemas() []ToolSchema {
	defs := l.registry.List()
	schemas := make([]ToolSchema, 0, len(defs))
	for _, def := range defs {
		schemas = append(schemas, ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: tools.SchemaMap(def),
		})
	}
	return schemas
}

// callModelWithRetry invokes the model with exponential backoff on retryable
// failures. Each attempt carries its own timeout.
func (l *Loop) callModelWithRetry(ctx context.Context, messages []Message, toolSchemas []ToolSchema) (*CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < l.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, l.cfg.LLMTimeout)
		start := time.Now()
		response, err := l.provider.Complete(callCtx, CompletionRequest{
			Model:        l.cfg.Model,
			Messages:     messages,
			Tools:        toolSchemas,
			Temperature:  l.cfg.Temperature,
			MaxTokens:    l.cfg.MaxTokens,
			SystemPrompt: l.cfg.SystemPrompt,
		})
		cancel()
		observability.RecordLLMCall(l.provider.Provider(), time.Since(start), err == nil)

		if err == nil {
			return response, nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return nil, err
		}
		if attempt == l.cfg.MaxRetries-1 {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		delay := time.Duration(1000*(1<<attempt)) * time.Millisecond
		observability.RecordLLMRetry(l.provider.Provider())
		l.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying model call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", l.cfg.MaxRetries, lastErr)
}

// fallbackResponse synthesizes a best-effort reply from whatever the turn
// gathered before hitting the iteration ceiling.
func (l *Loop) fallbackResponse(outcome *Outcome) string {
	var b strings.Builder
	b.WriteString("I wasn't able to fully complete your request within this turn.")

	gathered := []string{}
	for _, msg := range outcome.Delta {
		if msg.Role == "tool" && msg.Content != "" {
			gathered = append(gathered, msg.Content)
		}
	}

	if len(gathered) == 0 {
		b.WriteString(" Could you rephrase or narrow down what you need?")
		return b.String()
	}

	b.WriteString(" Here is what I found so far:\n")
	// Keep the fallback digestible
	const maxSnippets = 3
	const maxSnippetLen = 400
	for i, snippet := range gathered {
		if i >= maxSnippets {
			b.WriteString(fmt.Sprintf("\n...and %d more results.", len(gathered)-maxSnippets))
			break
		}
		if len(snippet) > maxSnippetLen {
			snippet = snippet[:maxSnippetLen] + "..."
		}
		b.WriteString("\n- " + snippet)
	}
	b.WriteString("\n\nPlease let me know if you'd like me to continue.")
	return b.String()
}

// renderToolResult converts an executor result into model-visible text
func renderToolResult(result tools.Result) string {
	if !result.Success {
		return fmt.Sprintf("Error: %s", result.Error)
	}
	if result.Output == nil {
		return "null"
	}
	data, err := json.Marshal(result.Output)
	if err != nil {
		return fmt.Sprintf("%v", result.Output)
	}
	return string(data)
}
