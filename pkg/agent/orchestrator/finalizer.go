package orchestrator

import "github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/config"

// applyFinalizer post-processes the terminal answer before emission.
func applyFinalizer(mode config.FinalizerMode, content string) string {
	if mode == config.FinalizerModeStructured {
		return "## Response\n\n" + content
	}
	return content
}
