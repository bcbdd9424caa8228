package guardrails

import (
	"testing"

	"github.com/maisonlane/concierge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T, policy string) *Evaluator {
	t.Helper()
	e, err := New(config.GuardrailsConfig{DefaultPolicy: policy})
	require.NoError(t, err)
	return e
}

func TestEvaluate_AllowedTopics(t *testing.T) {
	e := newEvaluator(t, "allow")

	allowed := []string{
		"Show me merino wool jackets",
		"What is the status of my order ORD-001?",
		"I'd like to schedule a fitting appointment next week",
		"Tell me about your return policy please",
		"Can you recommend a cashmere sweater for winter?",
		"I want to cancel my order",
		"Do you have leather bags available in stock?",
	}

	for _, msg := range allowed {
		t.Run(msg, func(t *testing.T) {
			d := e.Evaluate(msg)
			assert.True(t, d.Allowed, "expected allowed: %q (reason: %s)", msg, d.Reason)
		})
	}
}

func TestEvaluate_BlockedPatterns(t *testing.T) {
	e := newEvaluator(t, "allow")

	blocked := []string{
		"What is the capital of France?",
		"Tell me about the history of ancient Rome",
		"Calculate 15 + 27 for me",
		"How do I debug my python function?",
		"I need legal advice about a lawsuit",
		"What are the latest news headlines today?",
		"Can you recommend car insurance providers?",
		"Best laptop for gaming under a thousand dollars?",
		"Help me write my homework essay tonight",
	}

	for _, msg := range blocked {
		t.Run(msg, func(t *testing.T) {
			d := e.Evaluate(msg)
			assert.False(t, d.Allowed, "expected blocked: %q", msg)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestEvaluate_EmptyMessage(t *testing.T) {
	e := newEvaluator(t, "allow")

	for _, msg := range []string{"", "   ", "\n\t"} {
		d := e.Evaluate(msg)
		assert.False(t, d.Allowed)
		assert.Equal(t, "Empty query", d.Reason)
	}
}

func TestEvaluate_ShortMessagesLenient(t *testing.T) {
	e := newEvaluator(t, "allow")

	// One or two words pass even without topic matches
	assert.True(t, e.Evaluate("hello").Allowed)
	assert.True(t, e.Evaluate("thank you").Allowed)
	assert.True(t, e.Evaluate("hmm interesting").Allowed)
}

func TestEvaluate_ConversationalStarters(t *testing.T) {
	e := newEvaluator(t, "allow")

	d := e.Evaluate("thanks so much for all that wonderful information")
	assert.True(t, d.Allowed)
}

func TestEvaluate_LongOffTopicBlocked(t *testing.T) {
	e := newEvaluator(t, "allow")

	d := e.Evaluate("the weather yesterday was quite remarkable across several distant northern regions")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "products, orders, appointments")
}

func TestEvaluate_DefaultPolicy(t *testing.T) {
	// Mid-length message, no topic word, no starter: falls through to the
	// configured default.
	msg := "something vague entirely unrelated here"

	t.Run("allow default", func(t *testing.T) {
		e := newEvaluator(t, "allow")
		assert.True(t, e.Evaluate(msg).Allowed)
	})

	t.Run("block default", func(t *testing.T) {
		e := newEvaluator(t, "block")
		d := e.Evaluate(msg)
		assert.False(t, d.Allowed)
		assert.NotEmpty(t, d.Reason)
	})
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := newEvaluator(t, "allow")

	msg := "Show me merino wool jackets"
	first := e.Evaluate(msg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Evaluate(msg))
	}
}

func TestNew_CustomRules(t *testing.T) {
	e, err := New(config.GuardrailsConfig{
		DefaultPolicy:   "allow",
		ExtraTopics:     []string{"giftcard"},
		BlockedPatterns: []string{`\bcryptocurrency\b`},
	})
	require.NoError(t, err)

	assert.True(t, e.Evaluate("can I redeem a giftcard on checkout day").Allowed)
	assert.False(t, e.Evaluate("should I buy cryptocurrency now").Allowed)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(config.GuardrailsConfig{
		DefaultPolicy:   "allow",
		BlockedPatterns: []string{`([unclosed`},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}
