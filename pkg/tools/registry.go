// Package tools holds the tool registry and the tools exposed to the model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	Schema() llm.ToolSchema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToolResult is the outcome of executing one tool call. Execution never
// raises across this boundary: failures come back as Success=false with a
// human-readable Error.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Result     string
	Success    bool
	Error      string
	Metadata   map[string]any
}

// Registry maps tool name to tool. Initialised once at startup, read-only
// afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools in order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Schema().Name
		if _, exists := r.tools[name]; exists {
			slog.Warn("Duplicate tool registration ignored", "tool", name)
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// GetDefinitions returns all tool schemas in registration order.
func (r *Registry) GetDefinitions() []llm.ToolSchema {
	defs := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Schema())
	}
	return defs
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs one tool call and captures every failure mode in the result.
func (r *Registry) Execute(ctx context.Context, tc models.ToolCall) (res ToolResult) {
	res = ToolResult{ToolCallID: tc.ID, ToolName: tc.Function.Name}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool panicked", "tool", tc.Function.Name, "panic", rec)
			res.Success = false
			res.Error = fmt.Sprintf("tool %s panicked: %v", tc.Function.Name, rec)
			res.Result = res.Error
		}
	}()

	if tc.Function.Name == FinalizeToolName {
		// The finalize sentinel is a model-facing declaration only; its
		// invocation is intercepted before dispatch ever reaches here.
		res.Error = fmt.Sprintf("%s is not executable", FinalizeToolName)
		res.Result = res.Error
		return res
	}

	tool, ok := r.tools[tc.Function.Name]
	if !ok {
		res.Error = fmt.Sprintf("unknown tool: %s", tc.Function.Name)
		res.Result = res.Error
		return res
	}

	args := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			res.Error = "invalid arguments"
			res.Result = res.Error
			return res
		}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		res.Error = err.Error()
		res.Result = err.Error()
		return res
	}

	res.Result = result
	res.Success = true
	return res
}
