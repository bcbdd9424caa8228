// Package orchestrator composes guardrails, memory, the understanding
// loop, and metrics into a single entry point for processing user turns.
// It is the only package that coordinates those components; callers see
// ProcessMessage and the metrics snapshots, nothing else.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/maisonlane/concierge/internal/observability"
	"github.com/maisonlane/concierge/internal/tracing"
	"github.com/maisonlane/concierge/pkg/agent"
	"github.com/maisonlane/concierge/pkg/commandqueue"
	"github.com/maisonlane/concierge/pkg/guardrails"
	"github.com/maisonlane/concierge/pkg/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// refusalText is returned verbatim for messages the guardrail blocks.
	refusalText = "I'm sorry, but I can only help with questions about our " +
		"products, orders, appointments, and store policies. Is there " +
		"anything along those lines I can help you with?"

	// troubleText is returned when the model remains unreachable after
	// retries. Internal failure detail never reaches the caller.
	troubleText = "I'm sorry, I'm having trouble processing your request " +
		"right now. Please try again in a moment."
)

// Reply is the outcome of one processed turn.
type Reply struct {
	Text    string `json:"text"`
	Blocked bool   `json:"blocked"`
}

// Orchestrator processes user turns. Turns for the same conversation are
// serialized on a per-conversation queue lane; turns for distinct
// conversations run concurrently.
type Orchestrator struct {
	evaluator *guardrails.Evaluator
	store     *memory.Store
	loop      *agent.Loop
	queue     *commandqueue.Queue
	logger    zerolog.Logger
}

// New creates an Orchestrator. All four collaborators are required.
func New(evaluator *guardrails.Evaluator, store *memory.Store, loop *agent.Loop, queue *commandqueue.Queue) (*Orchestrator, error) {
	observability.EnsureRegistered()

	if evaluator == nil {
		return nil, fmt.Errorf("guardrail evaluator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if loop == nil {
		return nil, fmt.Errorf("understanding loop is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("command queue is required")
	}

	return &Orchestrator{
		evaluator: evaluator,
		store:     store,
		loop:      loop,
		queue:     queue,
		logger:    log.Logger,
	}, nil
}

// ProcessMessage runs one user turn: guardrail check, history read,
// understanding loop, memory write, metrics. It never surfaces internal
// faults to the caller; model failures after retry exhaustion map to an
// apologetic reply. The returned error covers caller mistakes only
// (empty conversation id, cancelled context).
func (o *Orchestrator) ProcessMessage(ctx context.Context, conversationID, message string) (Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if conversationID == "" {
		return Reply{}, fmt.Errorf("conversation id cannot be empty")
	}

	ctx = tracing.WithConversationID(ctx, conversationID)
	ctx, span := tracing.StartSpan(
		ctx,
		"concierge.orchestrator",
		"orchestrator.process_message",
		attribute.String("conversation_id", conversationID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, o.logger)

	// Guardrails run before any model or memory work is spent on the
	// turn. A blocked message records a counter and nothing else.
	decision := o.evaluator.Evaluate(message)
	observability.RecordGuardrailDecision(decision.Allowed)
	if !decision.Allowed {
		logger.Warn().
			Str("reason", decision.Reason).
			Msg("Message blocked by guardrails")
		o.store.RecordGuardrailBlock(conversationID)
		span.SetAttributes(attribute.Bool("blocked", true))
		return Reply{Text: refusalText, Blocked: true}, nil
	}

	lane := commandqueue.ConversationLane(conversationID)
	value, err := o.queue.EnqueueWithContext(ctx, lane, func(taskCtx context.Context) (interface{}, error) {
		return o.runTurn(taskCtx, conversationID, message)
	}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		logger.Error().Err(err).Msg("Turn failed")
		return Reply{Text: troubleText}, nil
	}

	return value.(Reply), nil
}

// runTurn executes the model-facing part of a turn. It runs on the
// conversation's queue lane, so at most one turn per conversation is in
// here at a time.
func (o *Orchestrator) runTurn(ctx context.Context, conversationID, message string) (Reply, error) {
	logger := tracing.LoggerFromContext(ctx, o.logger)
	startTime := time.Now()

	history := toAgentHistory(o.store.History(conversationID))

	outcome, err := o.loop.Run(ctx, history, message)
	duration := time.Since(startTime)

	if err != nil {
		observability.RecordTurn(duration, "error")
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		logger.Error().
			Err(err).
			Dur("duration", duration).
			Msg("Understanding loop failed")
		return Reply{Text: troubleText}, nil
	}

	// The turn is committed to memory as a unit: the user message, the
	// tool transcript, and the final assistant reply, in order.
	turnMessages := make([]memory.Message, 0, len(outcome.Delta)+1)
	turnMessages = append(turnMessages, memory.Message{
		Role:    memory.RoleUser,
		Content: message,
	})
	turnMessages = append(turnMessages, toMemoryDelta(outcome.Delta)...)

	if err := o.store.AppendAll(conversationID, turnMessages...); err != nil {
		logger.Error().Err(err).Msg("Failed to record turn in memory")
	}
	if err := o.store.RecordTurn(conversationID, memory.TurnMetrics{
		Latency:      duration,
		ToolsInvoked: outcome.ToolsInvoked,
		Iterations:   outcome.Iterations,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to record turn metrics")
	}

	status := "ok"
	if outcome.LimitReached {
		status = "limit"
	}
	observability.RecordTurn(duration, status)

	logger.Info().
		Dur("duration", duration).
		Int("iterations", outcome.Iterations).
		Int("tools", len(outcome.ToolsInvoked)).
		Bool("limitReached", outcome.LimitReached).
		Msg("Turn processed")

	return Reply{Text: outcome.Response}, nil
}

// ConversationMetrics returns the metrics snapshot for one conversation.
func (o *Orchestrator) ConversationMetrics(conversationID string) memory.ConversationMetrics {
	return o.store.ConversationMetrics(conversationID)
}

// GlobalMetrics returns the cross-conversation metrics snapshot.
func (o *Orchestrator) GlobalMetrics() memory.GlobalMetrics {
	return o.store.GlobalMetrics()
}

// toAgentHistory converts stored conversation history into the model's
// working context. Tool transcript entries are dropped: provider APIs
// require tool results to be paired with the assistant call that issued
// them, and stored history keeps only the flattened transcript. The
// final assistant replies already summarize those results.
func toAgentHistory(stored []memory.Message) []agent.Message {
	history := make([]agent.Message, 0, len(stored))
	for _, m := range stored {
		switch m.Role {
		case memory.RoleUser:
			history = append(history, agent.Message{Role: "user", Content: m.Content})
		case memory.RoleAssistant:
			history = append(history, agent.Message{Role: "assistant", Content: m.Content})
		}
	}
	return history
}

// toMemoryDelta converts a turn's transcript delta into storable
// messages. Assistant entries that only carry tool calls have no text
// content and are skipped; the tool results and the final reply are
// kept.
func toMemoryDelta(delta []agent.Message) []memory.Message {
	out := make([]memory.Message, 0, len(delta))
	for _, m := range delta {
		switch m.Role {
		case "assistant":
			if len(m.ToolCalls) > 0 && m.Content == "" {
				continue
			}
			out = append(out, memory.Message{
				Role:    memory.RoleAssistant,
				Content: m.Content,
			})
		case "tool":
			toolName := ""
			if m.Metadata != nil {
				if name, ok := m.Metadata["tool_name"].(string); ok {
					toolName = name
				}
			}
			out = append(out, memory.Message{
				Role:     memory.RoleTool,
				Content:  m.Content,
				ToolName: toolName,
				CallID:   m.ToolCallID,
			})
		}
	}
	return out
}
