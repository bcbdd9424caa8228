package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryUnknownConversation(t *testing.T) {
	s := NewStore()

	history := s.History("never-seen")
	assert.NotNil(t, history)
	assert.Empty(t, history)

	// Reading must not materialize a record
	assert.Equal(t, 0, s.ConversationCount())
}

func TestAppendAndHistory(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Append("conv-1", Message{Role: RoleUser, Content: "where is my order?"}))
	require.NoError(t, s.Append("conv-1", Message{Role: RoleAssistant, Content: "Let me check."}))

	history := s.History("conv-1")
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "where is my order?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestAppendValidation(t *testing.T) {
	s := NewStore()

	assert.Error(t, s.Append("", Message{Role: RoleUser, Content: "hi"}))
	assert.Error(t, s.Append("conv-1", Message{Content: "missing role"}))
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append("conv-1", Message{Role: RoleUser, Content: "original"}))

	history := s.History("conv-1")
	history[0].Content = "mutated"

	again := s.History("conv-1")
	assert.Equal(t, "original", again[0].Content)
}

func TestConversationsIsolated(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Append("conv-a", Message{Role: RoleUser, Content: "for a"}))
	require.NoError(t, s.Append("conv-b", Message{Role: RoleUser, Content: "for b"}))

	a := s.History("conv-a")
	b := s.History("conv-b")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "for a", a[0].Content)
	assert.Equal(t, "for b", b[0].Content)
}

func TestRecordTurnMetrics(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.RecordTurn("conv-1", TurnMetrics{
		Latency:      100 * time.Millisecond,
		ToolsInvoked: []string{"get_order_status", "get_order_status"},
		Iterations:   3,
	}))
	require.NoError(t, s.RecordTurn("conv-1", TurnMetrics{
		Latency:      300 * time.Millisecond,
		ToolsInvoked: []string{"search_products"},
		Iterations:   2,
	}))

	cm := s.ConversationMetrics("conv-1")
	assert.Equal(t, 2, cm.TurnCount)
	assert.Equal(t, 200*time.Millisecond, cm.AverageLatency)
	assert.Equal(t, 2, cm.ToolInvocations["get_order_status"])
	assert.Equal(t, 1, cm.ToolInvocations["search_products"])
}

func TestConversationMetricsUnknown(t *testing.T) {
	s := NewStore()

	cm := s.ConversationMetrics("ghost")
	assert.Equal(t, "ghost", cm.ConversationID)
	assert.Zero(t, cm.MessageCount)
	assert.Zero(t, cm.TurnCount)
	assert.Zero(t, cm.AverageLatency)
	assert.Empty(t, cm.ToolInvocations)
}

func TestGlobalMetricsAggregation(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Append("conv-1", Message{Role: RoleUser, Content: "one"}))
	require.NoError(t, s.Append("conv-2", Message{Role: RoleUser, Content: "two"}))
	require.NoError(t, s.RecordTurn("conv-1", TurnMetrics{Latency: 50 * time.Millisecond}))
	require.NoError(t, s.RecordTurn("conv-2", TurnMetrics{Latency: 150 * time.Millisecond, ToolsInvoked: []string{"list_policies"}}))
	s.RecordGuardrailBlock("conv-2")

	gm := s.GlobalMetrics()
	assert.Equal(t, 2, gm.ConversationCount)
	assert.Equal(t, 2, gm.MessageCount)
	assert.Equal(t, 2, gm.TurnCount)
	assert.Equal(t, 100*time.Millisecond, gm.AverageLatency)
	assert.Equal(t, 1, gm.ToolInvocations["list_policies"])
	assert.Equal(t, 1, gm.GuardrailBlocks)
}

func TestGuardrailBlockDoesNotTouchHistory(t *testing.T) {
	s := NewStore()

	s.RecordGuardrailBlock("conv-1")

	assert.Empty(t, s.History("conv-1"))
	cm := s.ConversationMetrics("conv-1")
	assert.Equal(t, 1, cm.GuardrailBlocks)
	assert.Zero(t, cm.MessageCount)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore()

	const conversations = 8
	const perConversation = 50

	var wg sync.WaitGroup
	for c := 0; c < conversations; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", c)
			for i := 0; i < perConversation; i++ {
				err := s.Append(id, Message{
					Role:    RoleUser,
					Content: fmt.Sprintf("%s msg %d", id, i),
				})
				assert.NoError(t, err)
			}
		}(c)
	}
	wg.Wait()

	for c := 0; c < conversations; c++ {
		id := fmt.Sprintf("conv-%d", c)
		history := s.History(id)
		require.Len(t, history, perConversation)
		for _, msg := range history {
			// No cross-conversation leakage
			assert.Contains(t, msg.Content, id+" ")
		}
	}

	gm := s.GlobalMetrics()
	assert.Equal(t, conversations*perConversation, gm.MessageCount)
}
