package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/maisonlane/concierge/internal/observability"
	"github.com/rs/zerolog/log"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single conversation entry
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	CallID    string    `json:"call_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnMetrics captures the cost of one processed turn
type TurnMetrics struct {
	Latency      time.Duration
	ToolsInvoked []string
	Iterations   int
}

// record holds one conversation's history and counters behind its own lock
type record struct {
	mu         sync.Mutex
	messages   []Message
	turns      int
	latency    time.Duration
	toolCalls  map[string]int
	blocks     int
}

// Store is the process-wide conversation memory. Safe for concurrent use;
// operations on distinct conversation ids never contend.
type Store struct {
	records  map[string]*record
	mu       sync.RWMutex
	archiver *Archiver

	// Global aggregates, independently locked so cross-conversation metric
	// writes don't serialize on each other's history locks.
	globalMu     sync.Mutex
	globalTurns  int
	globalMsgs   int
	globalLat    time.Duration
	globalTools  map[string]int
	globalBlocks int
}

// Option configures a Store
type Option func(*Store)

// WithArchiver attaches a write-only transcript archiver
func WithArchiver(a *Archiver) Option {
	return func(s *Store) {
		s.archiver = a
	}
}

// NewStore creates an empty conversation store
func NewStore(opts ...Option) *Store {
	observability.EnsureRegistered()

	s := &Store{
		records:     make(map[string]*record),
		globalTools: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	log.Info().Msg("Conversation store initialized")
	return s
}

func validateConversationID(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	return nil
}

// getRecord returns the record for a conversation, creating it lazily
func (s *Store) getRecord(conversationID string) *record {
	s.mu.RLock()
	rec, ok := s.records[conversationID]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok = s.records[conversationID]; ok {
		return rec
	}
	rec = &record{toolCalls: make(map[string]int)}
	s.records[conversationID] = rec
	observability.SetActiveConversations(len(s.records))
	return rec
}

// History returns a copy of the ordered message sequence for a conversation.
// Unseen conversation ids yield an empty slice.
func (s *Store) History(conversationID string) []Message {
	s.mu.RLock()
	rec, ok := s.records[conversationID]
	s.mu.RUnlock()
	if !ok {
		return []Message{}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := make([]Message, len(rec.messages))
	copy(out, rec.messages)
	return out
}

// Append adds a message to a conversation's history
func (s *Store) Append(conversationID string, message Message) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}
	if message.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	rec := s.getRecord(conversationID)
	rec.mu.Lock()
	rec.messages = append(rec.messages, message)
	rec.mu.Unlock()

	if s.archiver != nil {
		if err := s.archiver.Write(conversationID, message); err != nil {
			log.Warn().
				Str("conversation_id", conversationID).
				Err(err).
				Msg("Failed to archive message")
		}
	}

	s.globalMu.Lock()
	s.globalMsgs++
	s.globalMu.Unlock()

	log.Debug().
		Str("conversation_id", conversationID).
		Str("role", string(message.Role)).
		Msg("Message appended")

	return nil
}

// AppendAll appends messages in order, stopping at the first failure
func (s *Store) AppendAll(conversationID string, messages ...Message) error {
	for _, msg := range messages {
		if err := s.Append(conversationID, msg); err != nil {
			return err
		}
	}
	return nil
}

// RecordTurn updates per-conversation and global aggregates for one turn
func (s *Store) RecordTurn(conversationID string, tm TurnMetrics) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}

	rec := s.getRecord(conversationID)
	rec.mu.Lock()
	rec.turns++
	rec.latency += tm.Latency
	for _, tool := range tm.ToolsInvoked {
		rec.toolCalls[tool]++
	}
	rec.mu.Unlock()

	s.globalMu.Lock()
	s.globalTurns++
	s.globalLat += tm.Latency
	for _, tool := range tm.ToolsInvoked {
		s.globalTools[tool]++
	}
	s.globalMu.Unlock()

	return nil
}

// RecordGuardrailBlock counts a blocked message without touching history
func (s *Store) RecordGuardrailBlock(conversationID string) {
	if conversationID != "" {
		rec := s.getRecord(conversationID)
		rec.mu.Lock()
		rec.blocks++
		rec.mu.Unlock()
	}

	s.globalMu.Lock()
	s.globalBlocks++
	s.globalMu.Unlock()
}

// ConversationCount returns the number of tracked conversations
func (s *Store) ConversationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
