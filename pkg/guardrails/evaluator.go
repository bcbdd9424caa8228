// Package guardrails provides fast rule-based filtering of inbound messages
// against the concierge's service scope. Evaluation is deterministic, makes no
// network calls, and runs before any model or tool work is spent on a turn.
package guardrails

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/maisonlane/concierge/internal/config"
)

// Decision is the outcome of evaluating one inbound message.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Evaluator checks messages against an allow-listed topic set and blocked
// patterns. The rule set is fixed at construction; only the default policy
// can change at runtime (config hot-reload). Safe for concurrent use.
type Evaluator struct {
	defaultAllow atomic.Bool
	topics       map[string]struct{}
	blocked      []*regexp.Regexp
	starters     map[string]struct{}
	wordRe       *regexp.Regexp
}

// Topics the concierge can handle: products, orders, appointments, policies,
// and general service terms.
var allowedTopics = []string{
	// Product-related
	"product", "products", "item", "items", "clothing", "apparel",
	"jacket", "coat", "sweater", "shirt", "pants", "trousers", "dress",
	"suit", "bag", "accessory", "accessories", "leather", "wool",
	"cashmere", "merino", "collection", "catalog", "inventory", "stock",
	"size", "color", "style", "fashion", "wear", "outfit", "wardrobe",
	// Order-related
	"email", "order", "orders", "purchase", "buy", "bought", "ordered",
	"cart", "checkout", "payment", "shipping", "delivery", "cancel",
	"modify", "change", "update", "swap", "replace", "return", "refund",
	"exchange", "like",
	// Appointment-related
	"appointment", "appointments", "schedule", "reschedule", "booking",
	"book", "meeting", "session", "consultation", "fitting", "tailoring",
	"styling", "stylist", "alteration", "alterations", "custom",
	"personalized",
	// Policy-related
	"policy", "policies", "warranty", "guarantee", "terms", "privacy",
	"vip", "membership", "loyalty", "program",
	// General service terms
	"help", "assist", "show", "find", "search", "look", "looking", "need",
	"want", "interested", "available", "recommend", "recommendation",
	"suggest", "status", "check", "view", "browse", "price", "cost",
	"expensive", "affordable", "luxury", "premium", "quality", "brand",
	"account", "profile", "preferences",
}

// Patterns that clearly indicate off-topic queries.
var blockedPatterns = []string{
	// General knowledge/trivia
	`\b(what|who|when|where|why|how)\s+(is|are|was|were|did)\s+(the\s+)?(capital|president|population|history|war|battle)`,
	`\b(tell me about|explain|describe)\s+(the\s+)?(history|geography|politics|science|biology|chemistry|physics|quantum|astronomy|geology|anthropology|sociology|psychology)`,
	// Math/calculations
	`\b(calculate|compute|solve|what is|what's)\s+\d+\s*[\+\-\*/]\s*\d+`,
	`\bmath(ematics)?\s+(problem|equation|formula)`,
	// Programming/technical
	`\b(python|javascript|java|code|programming|function|algorithm|debug)`,
	`\b(how to (write|program|code)|syntax error)`,
	// Medical/health
	`\b(medical|doctor|disease|symptom|diagnosis|treatment|medicine|drug|prescription|health issue)`,
	// Legal
	`\b(legal advice|lawyer|attorney|lawsuit|contract|sue|litigation)`,
	// News/current events
	`\b(latest news|current events|breaking news|headlines)`,
	// Unrelated shopping
	`\b(car|auto|vehicle|insurance|real estate|house|property|mortgage|loan)`,
	`\b(grocery|groceries|food delivery|restaurant|recipe)`,
	`\b(electronics|computer|laptop|phone|smartphone|tablet|gaming)`,
	// Entertainment, unless related to events/styling
	`\b(movie|film|tv show|series|netflix|music|song|album|concert)\s+(recommendation|review)`,
	// Personal advice
	`\b(relationship|dating|breakup|marriage|divorce|personal problem)`,
	// Travel, unless related to appointments
	`\b(flight|hotel|vacation|travel package|tourism|tourist)`,
	// Education
	`\b(homework|essay|thesis|dissertation|study|quiz)`,
}

var conversationalStarters = []string{
	"hi", "hello", "hey", "thanks", "thank", "yes", "no", "ok", "okay", "sure",
}

// New creates an evaluator from guardrail configuration. Extra topics and
// patterns from the config extend the built-in rule set.
func New(cfg config.GuardrailsConfig) (*Evaluator, error) {
	topics := make(map[string]struct{}, len(allowedTopics)+len(cfg.ExtraTopics))
	for _, topic := range allowedTopics {
		topics[topic] = struct{}{}
	}
	for _, topic := range cfg.ExtraTopics {
		topics[strings.ToLower(topic)] = struct{}{}
	}

	patterns := make([]*regexp.Regexp, 0, len(blockedPatterns)+len(cfg.BlockedPatterns))
	for _, p := range blockedPatterns {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	for _, p := range cfg.BlockedPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	starters := make(map[string]struct{}, len(conversationalStarters))
	for _, s := range conversationalStarters {
		starters[s] = struct{}{}
	}

	e := &Evaluator{
		topics:   topics,
		blocked:  patterns,
		starters: starters,
		wordRe:   regexp.MustCompile(`\b\w+\b`),
	}
	e.defaultAllow.Store(cfg.DefaultPolicy != "block")
	return e, nil
}

// SetDefaultPolicy updates how ambiguous messages are decided: "allow"
// or "block". Used by config hot-reload.
func (e *Evaluator) SetDefaultPolicy(policy string) {
	e.defaultAllow.Store(policy != "block")
}

// Evaluate classifies a message as in-scope or out-of-scope.
func (e *Evaluator) Evaluate(message string) Decision {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Decision{Allowed: false, Reason: "Empty query"}
	}

	lowered := strings.ToLower(trimmed)

	// Blocked patterns win over everything else
	for _, re := range e.blocked {
		if re.MatchString(lowered) {
			return Decision{Allowed: false, Reason: "Query topic is outside our service scope"}
		}
	}

	words := e.wordRe.FindAllString(lowered, -1)

	// Very short messages get the benefit of the doubt
	if len(words) <= 2 {
		return Decision{Allowed: true}
	}

	for _, word := range words {
		if _, ok := e.topics[word]; ok {
			return Decision{Allowed: true}
		}
	}

	// Natural conversational openers ("hi", "thanks, ...") are allowed even
	// without a topic word
	limit := len(words)
	if limit > 3 {
		limit = 3
	}
	for _, word := range words[:limit] {
		if _, ok := e.starters[word]; ok {
			return Decision{Allowed: true}
		}
	}

	// Longer messages with no recognizable topic are likely off-topic
	if len(words) > 5 {
		return Decision{
			Allowed: false,
			Reason:  "Query doesn't appear to be about products, orders, appointments, or our services",
		}
	}

	if e.defaultAllow.Load() {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: "Query could not be matched to a supported topic"}
}
