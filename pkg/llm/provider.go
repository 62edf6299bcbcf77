// Package llm normalises the wire protocols of the configured model
// endpoints behind a single provider contract. A provider translates between
// the domain message/tool vocabulary and one vendor's API and exposes both a
// blocking and a streaming call.
package llm

import (
	"context"
	"errors"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

var (
	// ErrExternalService is returned when the upstream keeps failing with a
	// >= 400 status after the configured retry budget.
	ErrExternalService = errors.New("llm provider request failed")

	// ErrTimeout is returned when a single request exceeds its deadline.
	ErrTimeout = errors.New("llm provider request timed out")
)

// ToolSchema describes one callable tool to the model.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// RequestConfig carries the per-call options forwarded from the loop
// configuration. The provider chooses the concrete model id from its own
// configuration using the extra-param flags.
type RequestConfig struct {
	// StreamingEnabled becomes the wire-level stream flag. Chat and
	// ChatStream each force it to match the call being made.
	StreamingEnabled bool
	Temperature      *float32
	MaxTokens        *int

	// UseThinkingModel selects the endpoint's thinking deployment.
	UseThinkingModel bool
	// UseInstructModel selects the endpoint's instruct deployment.
	UseInstructModel bool
	// EnableThinking requests inline reasoning from models that support it.
	EnableThinking bool
}

// ProviderMessage is the normalised shape of one blocking response.
type ProviderMessage struct {
	Content          string
	ToolCalls        []models.ToolCall
	TokensUsed       int
	ReasoningContent string
}

// StreamChunk is one normalised element of a provider stream.
// TokensUsed is typically only populated in the terminal chunk; consumers
// must tolerate earlier chunks reporting zero.
type StreamChunk struct {
	ContentDelta   string
	ReasoningDelta string
	// ToolCalls are surfaced only once id + name are known and the
	// arguments string is complete (finish reason signals completeness).
	ToolCalls    []models.ToolCall
	FinishReason string
	Role         string
	TokensUsed   int

	// Err marks an aborted stream. It is always the last chunk delivered;
	// any content received before it is partial and must not be treated as
	// a completed response.
	Err error
}

// ProviderInfo is a static capability descriptor.
type ProviderInfo struct {
	Name                    string
	SupportsStreaming       bool
	SupportsReasoningStream bool
	SupportsToolCalling     bool
}

// Provider is the single contract behind which the chat, thinking, and
// instruct wire protocols are normalised.
type Provider interface {
	// Chat performs a blocking completion.
	Chat(ctx context.Context, messages []models.Message, tools []ToolSchema, cfg RequestConfig) (*ProviderMessage, error)

	// ChatStream performs a streaming completion. The returned channel is
	// finite, single-pass, and closed when the stream completes. It is not
	// restartable; retries never apply to an already-started stream.
	ChatStream(ctx context.Context, messages []models.Message, tools []ToolSchema, cfg RequestConfig) (<-chan StreamChunk, error)

	// Info returns the provider's static capabilities.
	Info() ProviderInfo
}
