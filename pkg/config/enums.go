package config

// ModelStrategy defines available loop model strategies
type ModelStrategy string

const (
	// ModelStrategyQwenThinking runs the Qwen thinking model with inline
	// <think> reasoning separation (default)
	ModelStrategyQwenThinking ModelStrategy = "qwen_single_thinking"
	// ModelStrategyQwenInstruct runs the Qwen instruct model (no reasoning surface)
	ModelStrategyQwenInstruct ModelStrategy = "qwen_single_instruct"
	// ModelStrategyDeepSeek runs the DeepSeek chat model
	ModelStrategyDeepSeek ModelStrategy = "deepseek_single"
)

// IsValid checks if the model strategy is valid
func (s ModelStrategy) IsValid() bool {
	switch s {
	case ModelStrategyQwenThinking, ModelStrategyQwenInstruct, ModelStrategyDeepSeek:
		return true
	default:
		return false
	}
}

// StorageMode defines conversation storage backends
type StorageMode string

const (
	// StorageModeInMemory keeps conversations in a process-local map
	StorageModeInMemory StorageMode = "in-memory"
	// StorageModeDatabase persists conversations in PostgreSQL
	StorageModeDatabase StorageMode = "database"
)

// IsValid checks if the storage mode is valid
func (m StorageMode) IsValid() bool {
	return m == StorageModeInMemory || m == StorageModeDatabase
}

// FinalizerMode defines post-processing applied to the final answer
type FinalizerMode string

const (
	// FinalizerModeDirect returns the final answer unchanged (default)
	FinalizerModeDirect FinalizerMode = "direct"
	// FinalizerModeStructured prepends a markdown response header
	FinalizerModeStructured FinalizerMode = "structured"
)

// IsValid checks if the finalizer mode is valid
func (m FinalizerMode) IsValid() bool {
	return m == FinalizerModeDirect || m == FinalizerModeStructured
}
