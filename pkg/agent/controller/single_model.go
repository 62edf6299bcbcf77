// Package controller holds the concrete iteration strategies and the parser
// that separates inline reasoning from answer text.
package controller

import (
	"context"
	"strings"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// singleModelStrategy runs one iteration as a single streamed call against
// one model configuration. The three registered strategies differ only in
// model selection and whether the content stream carries inline reasoning.
type singleModelStrategy struct {
	name     string
	status   string
	provider llm.Provider
	loopCfg  config.LoopConfig

	// parseThink routes the content stream through the think-tag parser.
	parseThink bool
	// surfacesReasoning is false for chat/instruct configurations, which
	// never emit reasoning events.
	surfacesReasoning bool

	useThinkingModel bool
	useInstructModel bool
	enableThinking   bool
}

func (s *singleModelStrategy) Name() string { return s.name }

func (s *singleModelStrategy) ExecuteIteration(ctx context.Context, messages []models.Message, tools []llm.ToolSchema, ic agent.IterationContext) (<-chan agent.StrategyEvent, error) {
	reqCfg := llm.RequestConfig{
		StreamingEnabled: true,
		Temperature:      s.loopCfg.Temperature,
		MaxTokens:        s.loopCfg.MaxTokens,
		UseThinkingModel: s.useThinkingModel,
		UseInstructModel: s.useInstructModel,
		EnableThinking:   s.enableThinking,
	}

	stream, err := s.provider.ChatStream(ctx, messages, tools, reqCfg)
	if err != nil {
		return nil, err
	}

	out := make(chan agent.StrategyEvent, 16)
	go s.run(ctx, stream, ic, out)
	return out, nil
}

func (s *singleModelStrategy) run(ctx context.Context, stream <-chan llm.StreamChunk, ic agent.IterationContext, out chan<- agent.StrategyEvent) {
	defer close(out)

	emitReasoning := s.surfacesReasoning && s.loopCfg.ShowReasoning &&
		ic.StreamingMode != agent.StreamingFinalOnly
	emitContent := ic.StreamingMode == agent.StreamingProgressive

	emit := func(ev agent.StrategyEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(agent.StatusUpdate{Status: s.status, Phase: "model_call"}) {
		return
	}

	var content strings.Builder
	var toolCalls []models.ToolCall
	tokens := 0

	var parser *ThinkParser
	if s.parseThink {
		parser = NewThinkParser()
	}

	handleSegment := func(seg Segment) bool {
		if seg.Reasoning {
			if emitReasoning {
				return emit(agent.ReasoningChunk{Content: seg.Text, Source: "think_tag"})
			}
			return true
		}
		content.WriteString(seg.Text)
		if emitContent {
			return emit(agent.ContentChunk{Content: seg.Text})
		}
		return true
	}

	for chunk := range stream {
		if chunk.Err != nil {
			emit(agent.IterationFailed{Err: chunk.Err})
			return
		}
		if chunk.TokensUsed > 0 {
			tokens = chunk.TokensUsed
		}
		if chunk.ReasoningDelta != "" && emitReasoning {
			if !emit(agent.ReasoningChunk{Content: chunk.ReasoningDelta, Source: "reasoning_content"}) {
				return
			}
		}
		if chunk.ContentDelta != "" {
			if parser != nil {
				for _, seg := range parser.ProcessChunk(chunk.ContentDelta) {
					if !handleSegment(seg) {
						return
					}
				}
			} else if !handleSegment(Segment{Text: chunk.ContentDelta}) {
				return
			}
		}
		toolCalls = append(toolCalls, chunk.ToolCalls...)
	}

	if parser != nil {
		if seg, ok := parser.Flush(); ok {
			if !handleSegment(seg) {
				return
			}
		}
	}

	answer := strings.TrimSpace(content.String())
	sawFinal := false

	if len(toolCalls) > 0 {
		if !emit(agent.ToolCallsComplete{ToolCalls: toolCalls, AssistantContent: answer}) {
			return
		}
	} else if answer != "" {
		sawFinal = true
		if !emit(agent.FinalResponse{Content: answer, TokensUsed: tokens}) {
			return
		}
	}

	emit(agent.IterationComplete{
		TokensUsed:     tokens,
		ShouldContinue: len(toolCalls) > 0 && !sawFinal,
	})
}
