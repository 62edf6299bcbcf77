package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/events"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/metrics"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
)

// dispatch executes one tool call, intercepting the finalize sentinel before
// it reaches the registry.
func (t *turn) dispatch(tc models.ToolCall) error {
	args := map[string]any{}
	if tc.Function.Arguments != "" {
		// Best effort for the event payload; the registry re-parses strictly.
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
	}
	t.emit(events.NewToolCallStart(t.cid, tc.Function.Name, tc.ID, args, t.iteration))

	if tc.Function.Name == tools.FinalizeToolName {
		return t.finalize(tc)
	}

	res := t.o.registry.Execute(t.ctx, tc)

	outcome := metrics.OutcomeError
	if res.Success {
		outcome = metrics.OutcomeSuccess
	}
	t.o.metrics.ToolExecutions.WithLabelValues(res.ToolName, outcome).Inc()

	t.emit(events.NewToolCallResult(t.cid, res.ToolName, res.ToolCallID, res.Result, res.Success, t.iteration))
	t.appendToolResult(tc, res.Result)
	t.state.addToolCall(models.ToolCallRecord{
		ID:        tc.ID,
		Name:      res.ToolName,
		Arguments: tc.Function.Arguments,
		Result: models.ToolResultSummary{
			Type:    res.ToolName,
			Summary: summariseResult(res.Result, res.Success),
			Success: res.Success,
		},
		Success:   res.Success,
		Iteration: t.iteration,
	})
	return nil
}

// appendToolResult feeds a tool outcome back to the model via the working
// list and counts the call.
func (t *turn) appendToolResult(tc models.ToolCall, result string) {
	t.working = append(t.working, models.Message{
		Role:       models.RoleTool,
		Content:    result,
		ToolCallID: tc.ID,
		CreatedAt:  time.Now().UTC(),
		TokenCount: models.EstimateTokens(result),
	})
	t.cctx.Conversation.ToolCallsCount++
}

// finalize short-circuits the loop: it streams a clean answer from the
// instruct configuration using the context the model gathered and stops
// further iterations. The assistant message is persisted once the
// iteration's IterationComplete arrives.
func (t *turn) finalize(tc models.ToolCall) error {
	fargs, err := tools.ParseFinalizeArgs(tc.Function.Arguments)
	if err != nil {
		// Recoverable like any tool failure: the model sees the error and
		// may retry with well-formed arguments.
		msg := err.Error()
		t.emit(events.NewToolCallResult(t.cid, tools.FinalizeToolName, tc.ID, msg, false, t.iteration))
		t.appendToolResult(tc, msg)
		t.state.addToolCall(models.ToolCallRecord{
			ID:        tc.ID,
			Name:      tools.FinalizeToolName,
			Arguments: "",
			Result:    models.ToolResultSummary{Type: tools.FinalizeToolName, Summary: msg, Success: false},
			Iteration: t.iteration,
		})
		return nil
	}

	t.emit(events.NewStatusUpdate(t.cid, "Composing final answer...", "", t.iteration))

	msgs := []models.Message{
		{Role: models.RoleSystem, Content: finalizeSystemPrompt(fargs.AnswerStyle)},
		{Role: models.RoleUser, Content: finalizeUserPrompt(fargs.UserQuestion, fargs.Context)},
	}
	stream, err := t.o.instruct.ChatStream(t.ctx, msgs, nil, llm.RequestConfig{
		StreamingEnabled: true,
		UseInstructModel: true,
		Temperature:      t.o.loopCfg.Temperature,
		MaxTokens:        t.o.loopCfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("finalize stream: %w", err)
	}

	var answer strings.Builder
	tokens := 0
	for chunk := range stream {
		if chunk.Err != nil {
			return fmt.Errorf("finalize stream: %w", chunk.Err)
		}
		if chunk.TokensUsed > 0 {
			tokens = chunk.TokensUsed
		}
		if chunk.ContentDelta == "" {
			continue
		}
		answer.WriteString(chunk.ContentDelta)
		if t.mode == agent.StreamingProgressive {
			if !t.emit(events.NewResponseChunk(t.cid, chunk.ContentDelta, t.iteration, true)) {
				return t.ctx.Err()
			}
		}
	}
	if t.ctx.Err() != nil {
		return t.ctx.Err()
	}
	if t.mode != agent.StreamingProgressive {
		t.emit(events.NewResponseChunk(t.cid, applyFinalizer(t.o.finalizer, answer.String()), t.iteration, true))
	}

	t.o.metrics.ToolExecutions.WithLabelValues(tools.FinalizeToolName, metrics.OutcomeSuccess).Inc()
	t.emit(events.NewToolCallResult(t.cid, tools.FinalizeToolName, tc.ID, "Final answer streamed successfully", true, t.iteration))

	// The synthetic record keeps the question and style but drops the large
	// context argument from persistence.
	slim, _ := json.Marshal(map[string]string{
		"user_question": fargs.UserQuestion,
		"answer_style":  fargs.AnswerStyle,
	})
	t.cctx.Conversation.ToolCallsCount++
	t.state.addToolCall(models.ToolCallRecord{
		ID:        tc.ID,
		Name:      tools.FinalizeToolName,
		Arguments: string(slim),
		Result: models.ToolResultSummary{
			Type:    tools.FinalizeToolName,
			Summary: "Final answer streamed successfully",
			Success: true,
		},
		Success:   true,
		Iteration: t.iteration,
	})

	// The persist is deferred to this iteration's IterationComplete so the
	// metadata snapshot counts the iteration's own token usage too.
	t.finalContent = answer.String()
	t.totalTokens += tokens
	t.pendingFinal = true
	t.loop = false
	return nil
}
