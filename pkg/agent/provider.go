package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/maisonlane/concierge/internal/config"
)

// LLMProvider is an interface for LLM API providers
type LLMProvider interface {
	// Complete makes one model invocation
	Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// Provider returns the provider name
	Provider() string
}

// CompletionRequest contains the parameters for one model invocation
type CompletionRequest struct {
	Model        string
	Messages     []Message
	Tools        []ToolSchema
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// ToolSchema declares one callable tool to the model
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// CompletionResponse contains the model's reply: either a final assistant
// message (no tool calls) or a set of requested tool invocations.
type CompletionResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderCreator creates LLM providers from AI profiles
type ProviderCreator interface {
	NewProvider(profile config.AIProfile) (LLMProvider, error)
}

// ProviderFactory creates providers for the supported vendors
type ProviderFactory struct{}

// NewProvider creates an LLM provider from an AI profile
func (f *ProviderFactory) NewProvider(profile config.AIProfile) (LLMProvider, error) {
	switch profile.Provider {
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}

// SortProfilesByPriority orders profiles ascending by priority (lower = tried first)
func SortProfilesByPriority(profiles []config.AIProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Priority < profiles[j].Priority
	})
}
