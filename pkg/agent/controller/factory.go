package controller

import (
	"log/slog"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
)

// NewQwenThinkingStrategy runs the Qwen thinking deployment and separates
// inline <think> reasoning from the answer stream. This is the default.
func NewQwenThinkingStrategy(provider llm.Provider, loopCfg config.LoopConfig) agent.Strategy {
	return &singleModelStrategy{
		name:              string(config.ModelStrategyQwenThinking),
		status:            "Qwen model thinking...",
		provider:          provider,
		loopCfg:           loopCfg,
		parseThink:        true,
		surfacesReasoning: true,
		useThinkingModel:  true,
		enableThinking:    true,
	}
}

// NewQwenInstructStrategy runs the Qwen instruct deployment. Its content
// stream carries no think tags, so no parsing or reasoning events.
func NewQwenInstructStrategy(provider llm.Provider, loopCfg config.LoopConfig) agent.Strategy {
	return &singleModelStrategy{
		name:             string(config.ModelStrategyQwenInstruct),
		status:           "Qwen model responding...",
		provider:         provider,
		loopCfg:          loopCfg,
		useInstructModel: true,
	}
}

// NewDeepSeekStrategy runs the DeepSeek chat model.
func NewDeepSeekStrategy(provider llm.Provider, loopCfg config.LoopConfig) agent.Strategy {
	return &singleModelStrategy{
		name:     string(config.ModelStrategyDeepSeek),
		status:   "DeepSeek model responding...",
		provider: provider,
		loopCfg:  loopCfg,
	}
}

// NewStrategy resolves the configured strategy once at startup. Unknown
// values log a warning and fall back to the default; switching strategies
// requires a restart.
func NewStrategy(cfg *config.Config, qwen, deepseek llm.Provider) agent.Strategy {
	switch cfg.Loop.Strategy {
	case config.ModelStrategyQwenInstruct:
		return NewQwenInstructStrategy(qwen, cfg.Loop)
	case config.ModelStrategyDeepSeek:
		return NewDeepSeekStrategy(deepseek, cfg.Loop)
	case config.ModelStrategyQwenThinking:
		return NewQwenThinkingStrategy(qwen, cfg.Loop)
	default:
		slog.Warn("Unknown model strategy, using default",
			"strategy", cfg.Loop.Strategy, "default", config.ModelStrategyQwenThinking)
		return NewQwenThinkingStrategy(qwen, cfg.Loop)
	}
}
