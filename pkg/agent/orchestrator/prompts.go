package orchestrator

import (
	"fmt"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
)

const systemPrompt = `You are a helpful assistant with access to a knowledge base and tools.

Work iteratively:
1. Use the ` + tools.RAGToolName + ` tool to look up facts you are not sure about.
2. Gather whatever information the question needs; you may call tools multiple times.
3. When you have enough information, call ` + tools.FinalizeToolName + ` with the gathered context and the user's question. A clean final answer will then be composed for the user.

If the question needs no lookup, simply answer it directly.`

const preRetrievedHeader = "Pre-Retrieved Knowledge Base Context"

// finalizeSystemPrompt instructs the instruct model to produce the final
// answer directly, in the requested style, without meta commentary.
func finalizeSystemPrompt(answerStyle string) string {
	style := "Give a thorough, well-organised answer."
	switch answerStyle {
	case tools.AnswerStyleConcise:
		style = "Give a terse, direct answer with no elaboration."
	case tools.AnswerStyleStepByStep:
		style = "Answer as a sequence of numbered steps."
	}
	return "Answer the user's question directly using the provided context. " +
		"Do not mention the context, tools, or your own process. " + style
}

// finalizeUserPrompt combines the question and the gathered context.
func finalizeUserPrompt(userQuestion, context string) string {
	return fmt.Sprintf("Question: %s\n\nContext:\n%s", userQuestion, context)
}
