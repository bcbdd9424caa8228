package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maisonlane/concierge/internal/config"
	"github.com/maisonlane/concierge/pkg/agent"
	"github.com/maisonlane/concierge/pkg/commandqueue"
	"github.com/maisonlane/concierge/pkg/externalsystems"
	"github.com/maisonlane/concierge/pkg/guardrails"
	"github.com/maisonlane/concierge/pkg/memory"
	"github.com/maisonlane/concierge/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned responses in order. A nil entry in errs
// means the call at that index succeeds.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*agent.CompletionResponse
	errs      []error
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	if idx < len(p.responses) {
		return p.responses[idx], nil
	}
	return &agent.CompletionResponse{Content: "done"}, nil
}

func (p *scriptedProvider) Provider() string { return "scripted" }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestOrchestrator(t *testing.T, provider agent.LLMProvider) (*Orchestrator, *memory.Store) {
	t.Helper()

	evaluator, err := guardrails.New(config.GuardrailsConfig{DefaultPolicy: "allow"})
	require.NoError(t, err)

	registry := tools.NewRegistry()
	require.NoError(t, externalsystems.NewBackends().RegisterAll(registry))

	executor := tools.NewExecutor(registry, 5*time.Second)

	loop, err := agent.NewLoop(provider, executor, registry, agent.LoopConfig{
		Model:      "gpt-4o-mini",
		MaxRetries: 1,
		LLMTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	store := memory.NewStore()
	queue := commandqueue.New()
	t.Cleanup(func() { _ = queue.Close() })

	orch, err := New(evaluator, store, loop, queue)
	require.NoError(t, err)
	return orch, store
}

func TestProcessMessageAnswersWithToolUse(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*agent.CompletionResponse{
			{ToolCalls: []agent.ToolCall{{
				ID:         "call-1",
				Name:       "search_products",
				Parameters: map[string]interface{}{"query": "merino wool sweater"},
			}}},
			{Content: "We carry the Merino Wool Sweater at $165."},
		},
	}
	orch, store := newTestOrchestrator(t, provider)

	reply, err := orch.ProcessMessage(context.Background(), "conv-1", "Do you have merino wool sweaters?")
	require.NoError(t, err)
	assert.False(t, reply.Blocked)
	assert.Equal(t, "We carry the Merino Wool Sweater at $165.", reply.Text)

	// One user, one tool, one assistant message recorded for the turn.
	history := store.History("conv-1")
	require.Len(t, history, 3)
	assert.Equal(t, memory.RoleUser, history[0].Role)
	assert.Equal(t, "Do you have merino wool sweaters?", history[0].Content)
	assert.Equal(t, memory.RoleTool, history[1].Role)
	assert.Equal(t, "search_products", history[1].ToolName)
	assert.Equal(t, "call-1", history[1].CallID)
	assert.Equal(t, memory.RoleAssistant, history[2].Role)

	metrics := orch.ConversationMetrics("conv-1")
	assert.Equal(t, 1, metrics.TurnCount)
	assert.Equal(t, 3, metrics.MessageCount)
	assert.Equal(t, 1, metrics.ToolInvocations["search_products"])
	assert.Greater(t, metrics.AverageLatency, time.Duration(0))
}

func TestProcessMessageBlockedByGuardrails(t *testing.T) {
	provider := &scriptedProvider{}
	orch, store := newTestOrchestrator(t, provider)

	reply, err := orch.ProcessMessage(context.Background(), "conv-blocked", "What is the capital of France and who won the world cup?")
	require.NoError(t, err)
	assert.True(t, reply.Blocked)
	assert.Contains(t, reply.Text, "products, orders, appointments")

	// Blocked messages never reach the model and never enter history.
	assert.Equal(t, 0, provider.callCount())
	assert.Empty(t, store.History("conv-blocked"))

	metrics := orch.ConversationMetrics("conv-blocked")
	assert.Equal(t, 1, metrics.GuardrailBlocks)
	assert.Equal(t, 0, metrics.MessageCount)
	assert.Equal(t, 0, metrics.TurnCount)
}

func TestProcessMessageModelFailureGivesApology(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{fmt.Errorf("401 invalid api key")},
	}
	orch, store := newTestOrchestrator(t, provider)

	reply, err := orch.ProcessMessage(context.Background(), "conv-fail", "Where is my order?")
	require.NoError(t, err)
	assert.False(t, reply.Blocked)
	assert.Contains(t, reply.Text, "having trouble")

	// A failed turn leaves the transcript untouched.
	assert.Empty(t, store.History("conv-fail"))
	assert.Equal(t, 0, orch.ConversationMetrics("conv-fail").TurnCount)
}

func TestProcessMessageHistoryCarriesAcrossTurns(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*agent.CompletionResponse{
			{Content: "Hello! How can I help you today?"},
			{Content: "Of course, what would you like to know about orders?"},
		},
	}
	orch, store := newTestOrchestrator(t, provider)

	_, err := orch.ProcessMessage(context.Background(), "conv-multi", "hello")
	require.NoError(t, err)
	_, err = orch.ProcessMessage(context.Background(), "conv-multi", "I need help with an order")
	require.NoError(t, err)

	history := store.History("conv-multi")
	require.Len(t, history, 4)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "Hello! How can I help you today?", history[1].Content)
	assert.Equal(t, "I need help with an order", history[2].Content)

	assert.Equal(t, 2, orch.ConversationMetrics("conv-multi").TurnCount)
}

func TestProcessMessageEmptyConversationID(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &scriptedProvider{})

	_, err := orch.ProcessMessage(context.Background(), "", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversation id")
}

func TestConcurrentConversationsStayIsolated(t *testing.T) {
	provider := &scriptedProvider{}
	orch, store := newTestOrchestrator(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			conversationID := fmt.Sprintf("conv-%d", i)
			for turn := 0; turn < 3; turn++ {
				_, err := orch.ProcessMessage(context.Background(), conversationID, fmt.Sprintf("show my orders please %d", turn))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 6; i++ {
		conversationID := fmt.Sprintf("conv-%d", i)
		history := store.History(conversationID)
		// 3 turns, each with one user and one assistant message.
		assert.Len(t, history, 6, conversationID)
		assert.Equal(t, 3, orch.ConversationMetrics(conversationID).TurnCount)
	}

	global := orch.GlobalMetrics()
	assert.GreaterOrEqual(t, global.ConversationCount, 6)
	assert.GreaterOrEqual(t, global.TurnCount, 18)
}

func TestGlobalMetricsPassthrough(t *testing.T) {
	orch, store := newTestOrchestrator(t, &scriptedProvider{})

	_, err := orch.ProcessMessage(context.Background(), "conv-global", "check my order status")
	require.NoError(t, err)

	assert.Equal(t, store.GlobalMetrics(), orch.GlobalMetrics())
	assert.GreaterOrEqual(t, orch.GlobalMetrics().MessageCount, 2)
}
