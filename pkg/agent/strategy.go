package agent

import (
	"context"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// Strategy performs one iteration of the agentic loop against one model
// configuration. Implementations are stateless between calls and safe for
// concurrent use across conversations.
//
// The returned channel is finite and single-pass: it carries the iteration's
// events in order, ends with exactly one IterationComplete, and is closed
// afterwards. A non-nil error means the iteration could not start (the
// channel is nil in that case).
type Strategy interface {
	ExecuteIteration(ctx context.Context, messages []models.Message, tools []llm.ToolSchema, ic IterationContext) (<-chan StrategyEvent, error)

	// Name returns the configuration value this strategy is registered under.
	Name() string
}
