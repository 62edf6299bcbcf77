package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// OpenAIProvider talks to one OpenAI-compatible endpoint (Qwen and DeepSeek
// both expose the compatible-mode API). One instance wraps one endpoint; the
// thinking/instruct model split is resolved per request from RequestConfig.
type OpenAIProvider struct {
	name       string
	client     *openai.Client
	cfg        config.ProviderConfig
	maxRetries int
	retryDelay time.Duration

	// requestTimeout bounds each blocking completion and the time to first
	// response headers on a stream. Streamed bodies are bounded by the
	// caller's context (the turn timeout), not by this value. Zero disables.
	requestTimeout time.Duration

	// reasoningStream is true when the endpoint carries a dedicated
	// reasoning_content delta (DeepSeek reasoner, Qwen thinking mode).
	reasoningStream bool
}

// NewOpenAIProvider creates a provider for one endpoint.
func NewOpenAIProvider(name string, cfg config.ProviderConfig, reasoningStream bool, requestTimeout time.Duration) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if requestTimeout > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = requestTimeout
		clientCfg.HTTPClient = &http.Client{Transport: transport}
	}
	return &OpenAIProvider{
		name:            name,
		client:          openai.NewClientWithConfig(clientCfg),
		cfg:             cfg,
		maxRetries:      3,
		retryDelay:      time.Second,
		requestTimeout:  requestTimeout,
		reasoningStream: reasoningStream,
	}
}

// Info returns the provider's static capabilities.
func (p *OpenAIProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:                    p.name,
		SupportsStreaming:       true,
		SupportsReasoningStream: p.reasoningStream,
		SupportsToolCalling:     true,
	}
}

// Chat performs a blocking completion.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []models.Message, tools []ToolSchema, cfg RequestConfig) (*ProviderMessage, error) {
	if p.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.requestTimeout)
		defer cancel()
	}
	cfg.StreamingEnabled = false
	req := p.buildRequest(messages, tools, cfg)

	var resp openai.ChatCompletionResponse
	err := p.withRetries(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", ErrExternalService, p.name)
	}

	choice := resp.Choices[0]
	msg := &ProviderMessage{
		Content:          choice.Message.Content,
		ReasoningContent: choice.Message.ReasoningContent,
		TokensUsed:       resp.Usage.TotalTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: models.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return msg, nil
}

// ChatStream performs a streaming completion. The stream is consumed by a
// goroutine that normalises deltas into StreamChunk values; tool-call
// argument fragments are accumulated by index and surfaced only once the
// finish reason signals completeness.
func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []models.Message, tools []ToolSchema, cfg RequestConfig) (<-chan StreamChunk, error) {
	cfg.StreamingEnabled = true
	req := p.buildRequest(messages, tools, cfg)
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	var stream *openai.ChatCompletionStream
	err := p.withRetries(ctx, func() error {
		var callErr error
		stream, callErr = p.client.CreateChatCompletionStream(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 16)
	go p.pumpStream(ctx, stream, chunks)
	return chunks, nil
}

// pumpStream drains the SDK stream into normalised chunks.
func (p *OpenAIProvider) pumpStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- StreamChunk) {
	defer close(chunks)
	defer stream.Close()

	// Tool calls stream as fragments keyed by index: the first fragment
	// carries id and name, later ones append to the arguments text.
	pending := make(map[int]*models.ToolCall)
	order := make([]int, 0, 2)
	tokensUsed := 0

	flushToolCalls := func(finishReason string) {
		if len(pending) == 0 {
			return
		}
		out := StreamChunk{FinishReason: finishReason}
		for _, idx := range order {
			tc := pending[idx]
			if tc.ID != "" && tc.Function.Name != "" {
				out.ToolCalls = append(out.ToolCalls, *tc)
			}
		}
		pending = make(map[int]*models.ToolCall)
		order = order[:0]
		if len(out.ToolCalls) > 0 {
			p.send(ctx, chunks, out)
		}
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Stream ended without an explicit finish reason for the
				// pending calls: treat as implicit completion.
				flushToolCalls("")
				final := StreamChunk{TokensUsed: tokensUsed}
				p.send(ctx, chunks, final)
				return
			}
			slog.Warn("LLM stream aborted", "provider", p.name, "error", err)
			p.send(ctx, chunks, StreamChunk{Err: p.mapError(err)})
			return
		}

		if resp.Usage != nil {
			tokensUsed = resp.Usage.TotalTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		delta := choice.Delta

		if delta.Content != "" || delta.ReasoningContent != "" || delta.Role != "" {
			p.send(ctx, chunks, StreamChunk{
				ContentDelta:   delta.Content,
				ReasoningDelta: delta.ReasoningContent,
				Role:           delta.Role,
			})
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := pending[idx]
			if !ok {
				acc = &models.ToolCall{Type: "function"}
				pending[idx] = acc
				order = append(order, idx)
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				acc.Function.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				acc.Function.Arguments += tc.Function.Arguments
			}
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			flushToolCalls(string(choice.FinishReason))
		} else if choice.FinishReason != "" {
			p.send(ctx, chunks, StreamChunk{FinishReason: string(choice.FinishReason)})
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// send delivers a chunk unless the context is cancelled. A slow consumer
// blocks the stream here, which is the intended backpressure point.
func (p *OpenAIProvider) send(ctx context.Context, chunks chan<- StreamChunk, c StreamChunk) {
	select {
	case chunks <- c:
	case <-ctx.Done():
	}
}

// buildRequest maps domain messages and tool schemas onto the wire request.
func (p *OpenAIProvider) buildRequest(messages []models.Message, tools []ToolSchema, cfg RequestConfig) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    p.resolveModel(cfg),
		Messages: convertMessages(messages),
		Stream:   cfg.StreamingEnabled,
	}
	if cfg.Temperature != nil {
		req.Temperature = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		req.MaxTokens = *cfg.MaxTokens
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return req
}

// resolveModel picks the concrete model id for this request. EnableThinking
// is honoured by routing to the thinking deployment; the thinking models in
// scope reason by default once selected.
func (p *OpenAIProvider) resolveModel(cfg RequestConfig) string {
	switch {
	case cfg.UseInstructModel && p.cfg.InstructModel != "":
		return p.cfg.InstructModel
	case (cfg.UseThinkingModel || cfg.EnableThinking) && p.cfg.ThinkingModel != "":
		return p.cfg.ThinkingModel
	case p.cfg.Model != "":
		return p.cfg.Model
	case p.cfg.ThinkingModel != "":
		return p.cfg.ThinkingModel
	default:
		return p.cfg.InstructModel
	}
}

func convertMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if m.Role == models.RoleTool {
			msg.ToolCallID = m.ToolCallID
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// withRetries runs fn with a linear backoff retry budget. Only idempotent
// transport failures (429, 5xx, resets) are retried; an already-started
// stream is never retried.
func (p *OpenAIProvider) withRetries(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return p.mapError(ctx.Err())
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return p.mapError(lastErr)
		}
		slog.Warn("Retrying LLM request", "provider", p.name, "attempt", attempt+1, "error", lastErr)
	}
	return p.mapError(fmt.Errorf("retry budget exhausted: %w", lastErr))
}

// mapError folds SDK and context errors into the provider error taxonomy.
func (p *OpenAIProvider) mapError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, p.name, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrExternalService, p.name, err)
}

// isRetryableError classifies transient upstream failures.
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "broken pipe")
}
