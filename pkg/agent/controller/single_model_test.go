package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// scriptedProvider replays a fixed chunk sequence.
type scriptedProvider struct {
	chunks    []llm.StreamChunk
	streamErr error
	lastCfg   llm.RequestConfig
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []models.Message, tools []llm.ToolSchema, cfg llm.RequestConfig) (*llm.ProviderMessage, error) {
	return nil, errors.New("not used")
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []models.Message, tools []llm.ToolSchema, cfg llm.RequestConfig) (<-chan llm.StreamChunk, error) {
	p.lastCfg = cfg
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	ch := make(chan llm.StreamChunk, len(p.chunks))
	for _, c := range p.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Info() llm.ProviderInfo {
	return llm.ProviderInfo{Name: "scripted"}
}

func runStrategy(t *testing.T, s agent.Strategy, mode agent.StreamingMode) []agent.StrategyEvent {
	t.Helper()
	ch, err := s.ExecuteIteration(context.Background(), nil, nil, agent.IterationContext{
		ConversationID: "c1",
		Iteration:      1,
		MaxIterations:  10,
		StreamingMode:  mode,
	})
	require.NoError(t, err)
	var events []agent.StrategyEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func loopCfg() config.LoopConfig {
	return config.LoopConfig{ShowReasoning: true, MaxIterations: 10}
}

func TestThinkingStrategySeparatesReasoning(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "Let me think..."},
		{ContentDelta: "</think>The answer"},
		{ContentDelta: " is 4."},
		{TokensUsed: 42},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	var reasoning, content string
	var final *agent.FinalResponse
	var complete *agent.IterationComplete
	for _, ev := range events {
		switch e := ev.(type) {
		case agent.ReasoningChunk:
			reasoning += e.Content
			assert.Nil(t, final, "reasoning after final response")
		case agent.ContentChunk:
			content += e.Content
		case agent.FinalResponse:
			final = &e
		case agent.IterationComplete:
			complete = &e
		}
	}

	assert.Equal(t, "Let me think...", reasoning)
	assert.Equal(t, "The answer is 4.", content)
	require.NotNil(t, final)
	assert.Equal(t, "The answer is 4.", final.Content)
	assert.Equal(t, 42, final.TokensUsed)
	require.NotNil(t, complete)
	assert.False(t, complete.ShouldContinue)
	assert.Equal(t, 42, complete.TokensUsed)

	// IterationComplete is the terminal event.
	_, ok := events[len(events)-1].(agent.IterationComplete)
	assert.True(t, ok)
}

func TestThinkingStrategySelectsThinkingModel(t *testing.T) {
	p := &scriptedProvider{}
	runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	assert.True(t, p.lastCfg.UseThinkingModel)
	assert.True(t, p.lastCfg.EnableThinking)
	assert.True(t, p.lastCfg.StreamingEnabled)
}

func TestThinkingStrategySurfacesNativeReasoning(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ReasoningDelta: "native thought"},
		{ContentDelta: "</think>done"},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	var sources []string
	for _, ev := range events {
		if rc, ok := ev.(agent.ReasoningChunk); ok {
			sources = append(sources, rc.Source)
		}
	}
	assert.Contains(t, sources, "reasoning_content")
}

func TestStrategyToolCalls(t *testing.T) {
	call := models.ToolCall{ID: "call_1", Type: "function", Function: models.ToolCallFunction{
		Name: "search_knowledge_base", Arguments: `{"query":"vpn"}`,
	}}
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "</think>I should search."},
		{ToolCalls: []models.ToolCall{call}, FinishReason: "tool_calls"},
		{TokensUsed: 10},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	var batch *agent.ToolCallsComplete
	var complete *agent.IterationComplete
	for _, ev := range events {
		switch e := ev.(type) {
		case agent.ToolCallsComplete:
			batch = &e
		case agent.FinalResponse:
			t.Fatal("no final response expected when tool calls are present")
		case agent.IterationComplete:
			complete = &e
		}
	}

	require.NotNil(t, batch)
	require.Len(t, batch.ToolCalls, 1)
	assert.Equal(t, "call_1", batch.ToolCalls[0].ID)
	assert.Equal(t, "I should search.", batch.AssistantContent)
	require.NotNil(t, complete)
	assert.True(t, complete.ShouldContinue)
}

func TestFinalOnlyModeSuppressesChunks(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "reasoning</think>the answer"},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingFinalOnly)

	var final *agent.FinalResponse
	for _, ev := range events {
		switch e := ev.(type) {
		case agent.ContentChunk:
			t.Fatal("content chunk in final-only mode")
		case agent.ReasoningChunk:
			t.Fatal("reasoning chunk in final-only mode")
		case agent.FinalResponse:
			final = &e
		}
	}
	require.NotNil(t, final)
	assert.Equal(t, "the answer", final.Content)
}

func TestReasoningDisabledByConfig(t *testing.T) {
	cfg := loopCfg()
	cfg.ShowReasoning = false
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "hidden thought</think>visible"},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, cfg), agent.StreamingProgressive)

	for _, ev := range events {
		if _, ok := ev.(agent.ReasoningChunk); ok {
			t.Fatal("reasoning chunk with LOOP_THINKING_SHOW_REASONING disabled")
		}
	}
}

func TestInstructStrategyPlainStream(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "plain "},
		{ContentDelta: "answer"},
		{TokensUsed: 7},
	}}
	events := runStrategy(t, NewQwenInstructStrategy(p, loopCfg()), agent.StreamingProgressive)

	assert.True(t, p.lastCfg.UseInstructModel)
	var content string
	var final *agent.FinalResponse
	for _, ev := range events {
		switch e := ev.(type) {
		case agent.ReasoningChunk:
			t.Fatal("instruct strategy never emits reasoning")
		case agent.ContentChunk:
			content += e.Content
		case agent.FinalResponse:
			final = &e
		}
	}
	assert.Equal(t, "plain answer", content)
	require.NotNil(t, final)
	assert.Equal(t, "plain answer", final.Content)
}

func TestDeepSeekStrategyIgnoresNativeReasoning(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ReasoningDelta: "should not surface"},
		{ContentDelta: "answer"},
	}}
	events := runStrategy(t, NewDeepSeekStrategy(p, loopCfg()), agent.StreamingProgressive)

	for _, ev := range events {
		if _, ok := ev.(agent.ReasoningChunk); ok {
			t.Fatal("chat strategy never emits reasoning")
		}
	}
	assert.False(t, p.lastCfg.UseThinkingModel)
	assert.False(t, p.lastCfg.UseInstructModel)
}

func TestStreamEndsWithoutFinishReason(t *testing.T) {
	// Implicit completion: flush the parser, emit the final response, then
	// complete the iteration.
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "thinking</think>partial answe"},
		{ContentDelta: "r"},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	require.NotEmpty(t, events)
	_, ok := events[len(events)-1].(agent.IterationComplete)
	assert.True(t, ok)

	var final *agent.FinalResponse
	for _, ev := range events {
		if f, ok := ev.(agent.FinalResponse); ok {
			final = &f
		}
	}
	require.NotNil(t, final)
	assert.Equal(t, "partial answer", final.Content)
}

func TestStreamAbortFailsIteration(t *testing.T) {
	p := &scriptedProvider{chunks: []llm.StreamChunk{
		{ContentDelta: "</think>partial answer"},
		{Err: fmt.Errorf("%w: scripted: unexpected EOF", llm.ErrExternalService)},
	}}
	events := runStrategy(t, NewQwenThinkingStrategy(p, loopCfg()), agent.StreamingProgressive)

	require.NotEmpty(t, events)
	failed, ok := events[len(events)-1].(agent.IterationFailed)
	require.True(t, ok, "an aborted stream must end the iteration with a failure")
	assert.ErrorIs(t, failed.Err, llm.ErrExternalService)

	// The partial text is never promoted to a final response and the
	// iteration never completes.
	for _, ev := range events {
		switch ev.(type) {
		case agent.FinalResponse:
			t.Fatal("final response emitted for an aborted stream")
		case agent.IterationComplete:
			t.Fatal("iteration completed despite the aborted stream")
		}
	}
}

func TestExecuteIterationPropagatesStartError(t *testing.T) {
	p := &scriptedProvider{streamErr: errors.New("connect refused")}
	s := NewQwenThinkingStrategy(p, loopCfg())
	ch, err := s.ExecuteIteration(context.Background(), nil, nil, agent.IterationContext{StreamingMode: agent.StreamingProgressive})
	require.Error(t, err)
	assert.Nil(t, ch)
}

func TestFactorySelection(t *testing.T) {
	qwen := &scriptedProvider{}
	deepseek := &scriptedProvider{}

	tests := []struct {
		strategy config.ModelStrategy
		want     string
	}{
		{config.ModelStrategyQwenThinking, "qwen_single_thinking"},
		{config.ModelStrategyQwenInstruct, "qwen_single_instruct"},
		{config.ModelStrategyDeepSeek, "deepseek_single"},
		{config.ModelStrategy("bogus"), "qwen_single_thinking"},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			cfg := &config.Config{Loop: config.LoopConfig{Strategy: tt.strategy}}
			s := NewStrategy(cfg, qwen, deepseek)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}
