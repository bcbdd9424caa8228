package memory

import "time"

// ConversationMetrics is a point-in-time snapshot of one conversation's
// activity counters.
type ConversationMetrics struct {
	ConversationID  string         `json:"conversation_id"`
	MessageCount    int            `json:"message_count"`
	TurnCount       int            `json:"turn_count"`
	AverageLatency  time.Duration  `json:"average_latency"`
	ToolInvocations map[string]int `json:"tool_invocations"`
	GuardrailBlocks int            `json:"guardrail_blocks"`
}

// GlobalMetrics aggregates activity across all conversations
type GlobalMetrics struct {
	ConversationCount int            `json:"conversation_count"`
	MessageCount      int            `json:"message_count"`
	TurnCount         int            `json:"turn_count"`
	AverageLatency    time.Duration  `json:"average_latency"`
	ToolInvocations   map[string]int `json:"tool_invocations"`
	GuardrailBlocks   int            `json:"guardrail_blocks"`
}

// ConversationMetrics returns counters for one conversation. Unseen ids
// yield a zero-valued snapshot rather than an error.
func (s *Store) ConversationMetrics(conversationID string) ConversationMetrics {
	cm := ConversationMetrics{
		ConversationID:  conversationID,
		ToolInvocations: make(map[string]int),
	}

	s.mu.RLock()
	rec, ok := s.records[conversationID]
	s.mu.RUnlock()
	if !ok {
		return cm
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	cm.MessageCount = len(rec.messages)
	cm.TurnCount = rec.turns
	cm.GuardrailBlocks = rec.blocks
	if rec.turns > 0 {
		cm.AverageLatency = rec.latency / time.Duration(rec.turns)
	}
	for tool, n := range rec.toolCalls {
		cm.ToolInvocations[tool] = n
	}
	return cm
}

// GlobalMetrics returns the cross-conversation aggregate snapshot
func (s *Store) GlobalMetrics() GlobalMetrics {
	gm := GlobalMetrics{
		ToolInvocations: make(map[string]int),
	}

	s.mu.RLock()
	gm.ConversationCount = len(s.records)
	s.mu.RUnlock()

	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	gm.MessageCount = s.globalMsgs
	gm.TurnCount = s.globalTurns
	gm.GuardrailBlocks = s.globalBlocks
	if s.globalTurns > 0 {
		gm.AverageLatency = s.globalLat / time.Duration(s.globalTurns)
	}
	for tool, n := range s.globalTools {
		gm.ToolInvocations[tool] = n
	}
	return gm
}
