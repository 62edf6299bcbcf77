// Package orchestrator drives the agentic loop: pre-retrieval, iteration
// scheduling, tool execution, finalize handling, metadata aggregation,
// persistence, and translation of strategy events into stream events.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/events"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/metrics"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
)

var (
	// ErrTurnInProgress rejects a second concurrent turn on one conversation
	ErrTurnInProgress = errors.New("a turn is already in progress for this conversation")
	// ErrConversationInactive rejects turns on archived or deleted conversations
	ErrConversationInactive = errors.New("conversation is not active")
)

// Orchestrator composes the context manager, the tool registry, the active
// strategy, and the instruct provider used by the finalize phase. All fields
// are wired once at startup and read-only afterwards.
type Orchestrator struct {
	manager   *conversation.Manager
	registry  *tools.Registry
	rag       *tools.RAGTool
	strategy  agent.Strategy
	instruct  llm.Provider
	loopCfg   config.LoopConfig
	finalizer config.FinalizerMode
	metrics   *metrics.Metrics

	active sync.Map // conversation id -> struct{}
}

// New wires an orchestrator.
func New(
	manager *conversation.Manager,
	registry *tools.Registry,
	rag *tools.RAGTool,
	strategy agent.Strategy,
	instruct llm.Provider,
	loopCfg config.LoopConfig,
	finalizer config.FinalizerMode,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		manager:   manager,
		registry:  registry,
		rag:       rag,
		strategy:  strategy,
		instruct:  instruct,
		loopCfg:   loopCfg,
		finalizer: finalizer,
		metrics:   m,
	}
}

// SyncResult is the outcome of a non-streaming turn.
type SyncResult struct {
	Content        string `json:"content"`
	IterationsUsed int    `json:"iterationsUsed"`
	TokensUsed     int    `json:"tokensUsed"`
	ConversationID string `json:"conversationId"`
}

// ProcessMessageStream runs one turn and returns its event stream. The
// channel is finite and ends with exactly one Completed or Error event.
// Cancelling ctx (client disconnect) aborts the turn.
func (o *Orchestrator) ProcessMessageStream(ctx context.Context, conversationID, userMessage string) (<-chan events.StreamEvent, error) {
	return o.startTurn(ctx, conversationID, userMessage, agent.StreamingProgressive)
}

// ProcessMessageSync runs the same loop with progressive events suppressed
// and returns the final answer.
func (o *Orchestrator) ProcessMessageSync(ctx context.Context, conversationID, userMessage string) (*SyncResult, error) {
	out, err := o.startTurn(ctx, conversationID, userMessage, agent.StreamingFinalOnly)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{ConversationID: conversationID}
	for ev := range out {
		switch p := ev.Payload.(type) {
		case events.ResponseChunkPayload:
			if p.IsFinalAnswer {
				res.Content = p.Content
			}
		case events.CompletedPayload:
			res.IterationsUsed = p.IterationsUsed
			res.TokensUsed = p.TokensUsed
		case events.ErrorPayload:
			return nil, fmt.Errorf("turn failed: %s: %s", p.Error, p.Details)
		}
	}
	return res, nil
}

func (o *Orchestrator) startTurn(ctx context.Context, conversationID, userMessage string, mode agent.StreamingMode) (<-chan events.StreamEvent, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, conversation.NewValidationError("message", "must not be blank")
	}

	cctx, err := o.manager.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if cctx.Conversation.Status != models.ConversationStatusActive {
		return nil, ErrConversationInactive
	}

	if _, busy := o.active.LoadOrStore(conversationID, struct{}{}); busy {
		return nil, ErrTurnInProgress
	}

	out := make(chan events.StreamEvent, 32)
	go func() {
		defer o.active.Delete(conversationID)
		defer close(out)
		o.runTurn(ctx, conversationID, userMessage, mode, out)
	}()
	return out, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, conversationID, userMessage string, mode agent.StreamingMode, out chan<- events.StreamEvent) {
	start := time.Now()
	o.metrics.ActiveTurns.Inc()
	defer o.metrics.ActiveTurns.Dec()

	ctx, cancel := context.WithTimeout(ctx, o.loopCfg.TurnTimeout)
	defer cancel()

	t := &turn{
		o:      o,
		ctx:    ctx,
		cid:    conversationID,
		mode:   mode,
		out:    out,
		state:  newCollector(),
		loop:   true,
		logger: slog.With("conversation_id", conversationID),
	}

	err := t.run(userMessage)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		t.logger.Error("Turn failed", "iteration", t.iteration, "error", err)
		t.emit(events.NewError(conversationID, classifyError(err), err.Error()))
	}

	o.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	o.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	o.metrics.IterationsPerTurn.Observe(float64(t.iteration))
	o.metrics.TokensUsed.Add(float64(t.totalTokens))
}

// turn is the mutable state of one user turn. It lives on a single goroutine;
// no synchronisation is needed inside.
type turn struct {
	o      *Orchestrator
	ctx    context.Context
	cid    string
	mode   agent.StreamingMode
	out    chan<- events.StreamEvent
	logger *slog.Logger

	cctx    *models.ConversationContext
	working []models.Message
	state   *collector

	iteration      int
	totalTokens    int
	loop           bool
	finalContent   string
	finalPersisted bool
	pendingFinal   bool
}

func (t *turn) run(userMessage string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if !t.emit(events.NewStatusUpdate(t.cid, "Loading conversation...", "", 0)) {
		return t.ctx.Err()
	}
	cctx, err := t.o.manager.AddMessage(t.ctx, t.cid, models.Message{
		Role:    models.RoleUser,
		Content: userMessage,
	})
	if err != nil {
		return err
	}
	t.cctx = cctx

	t.emit(events.NewStatusUpdate(t.cid, "Performing initial knowledge search...", "", 0))
	ragResult := ""
	if result, ragErr := t.o.rag.Search(t.ctx, userMessage, 5); ragErr != nil {
		t.logger.Warn("Pre-retrieval failed, continuing without it", "error", ragErr)
	} else {
		ragResult = result
	}

	t.working = buildWorkingMessages(cctx.Messages, ragResult)

	maxIter := t.o.loopCfg.MaxIterations
	for t.loop && t.iteration < maxIter {
		t.iteration++
		if !t.emit(events.NewStatusUpdate(t.cid, fmt.Sprintf("Iteration %d of %d", t.iteration, maxIter), "", t.iteration)) {
			return t.ctx.Err()
		}

		if limit := t.o.loopCfg.WorkingMessagesLimit; limit > 0 && len(t.working) > limit {
			trimmed := trimWorking(t.working, limit)
			if len(trimmed) >= len(t.working) {
				return fmt.Errorf("working context overflow: %d messages", len(t.working))
			}
			t.working = trimmed
		}

		evCh, err := t.o.strategy.ExecuteIteration(t.ctx, t.working, t.o.registry.GetDefinitions(), agent.IterationContext{
			ConversationID: t.cid,
			Iteration:      t.iteration,
			MaxIterations:  maxIter,
			StreamingMode:  t.mode,
		})
		if err != nil {
			return fmt.Errorf("iteration %d: %w", t.iteration, err)
		}
		for ev := range evCh {
			if err := t.handleEvent(ev); err != nil {
				return err
			}
		}
		if t.ctx.Err() != nil {
			return t.ctx.Err()
		}
	}

	// Loop exhausted without a final response: persist whatever assistant
	// text accumulated, even if empty.
	if !t.finalPersisted {
		if err := t.persistFinal(t.finalContent, 0); err != nil {
			return err
		}
	}

	if err := t.o.manager.SaveConversation(t.ctx, t.cctx); err != nil {
		return err
	}
	t.emit(events.NewCompleted(t.cid, t.iteration, t.totalTokens))
	return nil
}

func (t *turn) handleEvent(ev agent.StrategyEvent) error {
	switch e := ev.(type) {
	case agent.ReasoningChunk:
		t.state.addReasoning(t.iteration, e.Content)
		if t.o.loopCfg.ShowReasoningTraces && t.mode == agent.StreamingProgressive {
			t.emit(events.NewReasoningTrace(t.cid, e.Content, t.iteration))
		}

	case agent.ContentChunk:
		t.finalContent += e.Content
		t.emit(events.NewResponseChunk(t.cid, e.Content, t.iteration, false))

	case agent.ToolCallDetected:
		return t.dispatch(e.ToolCall)

	case agent.ToolCallsComplete:
		t.working = append(t.working, models.Message{
			Role:       models.RoleAssistant,
			Content:    e.AssistantContent,
			ToolCalls:  e.ToolCalls,
			CreatedAt:  time.Now().UTC(),
			TokenCount: models.EstimateTokens(e.AssistantContent),
		})
		for _, tc := range e.ToolCalls {
			if err := t.dispatch(tc); err != nil {
				return err
			}
		}

	case agent.FinalResponse:
		t.finalContent = e.Content
		if err := t.persistFinal(e.Content, e.TokensUsed); err != nil {
			return err
		}
		t.emit(events.NewResponseChunk(t.cid, applyFinalizer(t.o.finalizer, e.Content), t.iteration, true))

	case agent.StatusUpdate:
		t.emit(events.NewStatusUpdate(t.cid, e.Status, e.Phase, t.iteration))

	case agent.IterationComplete:
		t.totalTokens += e.TokensUsed
		// A finalize earlier in this iteration already cleared the flag;
		// the conjunction keeps it cleared.
		t.loop = t.loop && e.ShouldContinue
		// A finalize defers its persist until here so the snapshot includes
		// this iteration's token usage.
		if t.pendingFinal {
			t.pendingFinal = false
			if err := t.persistFinal(t.finalContent, 0); err != nil {
				return err
			}
		}

	case agent.IterationFailed:
		return fmt.Errorf("iteration %d: %w", t.iteration, e.Err)
	}
	return nil
}

func (t *turn) emit(ev events.StreamEvent) bool {
	select {
	case t.out <- ev:
		return true
	case <-t.ctx.Done():
		return false
	}
}

// persistFinal writes the assistant message with its aggregated metadata.
// Counters accumulated so far (tool calls) are saved first so the reload
// inside the manager does not lose them.
func (t *turn) persistFinal(content string, extraTokens int) error {
	meta := t.state.snapshot(t.iteration, t.totalTokens+extraTokens)
	blob, err := meta.Encode()
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	if err := t.o.manager.SaveConversation(t.ctx, t.cctx); err != nil {
		return err
	}
	cctx, err := t.o.manager.AddMessageWithMetadata(t.ctx, t.cid, models.Message{
		Role:    models.RoleAssistant,
		Content: content,
	}, blob)
	if err != nil {
		return err
	}
	t.cctx = cctx
	t.finalPersisted = true
	return nil
}

// buildWorkingMessages assembles the in-memory message list for one turn:
// the orchestrator system prompt, the conversation window, and (when
// pre-retrieval found anything) the retrieved context as a second system
// message.
func buildWorkingMessages(window []models.Message, ragResult string) []models.Message {
	working := make([]models.Message, 0, len(window)+2)
	working = append(working, models.Message{
		Role:       models.RoleSystem,
		Content:    systemPrompt,
		TokenCount: models.EstimateTokens(systemPrompt),
	})
	working = append(working, window...)
	if strings.TrimSpace(ragResult) != "" {
		content := preRetrievedHeader + ":\n\n" + ragResult
		working = append(working, models.Message{
			Role:       models.RoleSystem,
			Content:    content,
			TokenCount: models.EstimateTokens(content),
		})
	}
	return working
}

// trimWorking re-applies the window cut to an oversized working list,
// preserving the leading system prompt and never starting the cut window on
// a tool message.
func trimWorking(msgs []models.Message, limit int) []models.Message {
	lead := 0
	for lead < len(msgs) && msgs[lead].Role == models.RoleSystem {
		lead++
	}
	rest := msgs[lead:]
	if len(rest) <= limit {
		return msgs
	}
	cut := len(rest) - limit
	for cut > 0 && rest[cut].Role == models.RoleTool {
		cut--
	}
	out := append([]models.Message{}, msgs[:lead]...)
	return append(out, rest[cut:]...)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		return "conversation not found"
	case errors.Is(err, llm.ErrTimeout):
		return "model request timed out"
	case errors.Is(err, llm.ErrExternalService):
		return "model provider error"
	case errors.Is(err, context.DeadlineExceeded):
		return "turn timed out"
	default:
		return "internal error"
	}
}
