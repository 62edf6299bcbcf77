package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
)

// FinalizeToolName is the sentinel the orchestrator intercepts before
// dispatch. The tool is declared so the model learns it exists, but the
// registry never executes it.
const FinalizeToolName = "finalize_answer"

// AnswerStyle values accepted by the finalize tool.
const (
	AnswerStyleConcise    = "concise"
	AnswerStyleDetailed   = "detailed"
	AnswerStyleStepByStep = "step_by_step"
)

// FinalizeArgs are the parsed arguments of a finalize_answer call.
type FinalizeArgs struct {
	Context      string `json:"context"`
	UserQuestion string `json:"user_question"`
	AnswerStyle  string `json:"answer_style"`
}

// ParseFinalizeArgs decodes the raw arguments JSON, applying the default
// answer style. Unknown styles fall back to detailed.
func ParseFinalizeArgs(arguments string) (FinalizeArgs, error) {
	var args FinalizeArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return FinalizeArgs{}, fmt.Errorf("invalid finalize arguments: %w", err)
	}
	switch args.AnswerStyle {
	case AnswerStyleConcise, AnswerStyleStepByStep:
	default:
		args.AnswerStyle = AnswerStyleDetailed
	}
	return args, nil
}

// FinalizeTool is the declaration-only sentinel.
type FinalizeTool struct{}

// NewFinalizeTool returns the sentinel tool.
func NewFinalizeTool() *FinalizeTool {
	return &FinalizeTool{}
}

// Schema describes the finalize contract to the model.
func (t *FinalizeTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        FinalizeToolName,
		Description: "Call this when you have gathered enough information to answer the user. Provide all relevant context and the original question; a clean final answer will be composed and streamed to the user.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"context": map[string]any{
					"type":        "string",
					"description": "All information gathered that is relevant to the answer",
				},
				"user_question": map[string]any{
					"type":        "string",
					"description": "The user's original question",
				},
				"answer_style": map[string]any{
					"type":        "string",
					"enum":        []string{AnswerStyleConcise, AnswerStyleDetailed, AnswerStyleStepByStep},
					"description": "How the final answer should be phrased (default detailed)",
				},
			},
			"required": []string{"context", "user_question"},
		},
	}
}

// Execute always fails: invocation must be intercepted by the orchestrator.
func (t *FinalizeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return "", fmt.Errorf("%s is handled by the orchestrator and cannot be executed directly", FinalizeToolName)
}
