package controller

import (
	"regexp"
	"strings"
)

const thinkCloseTag = "</think>"

var thinkBlockRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// Segment is one emitted piece of a parsed stream.
type Segment struct {
	Text      string
	Reasoning bool
}

// ThinkParser incrementally splits a streamed text into reasoning and answer
// segments. Thinking models start the stream in reasoning mode without an
// opening tag; the first </think> marks the transition to the answer. The
// closing tag may arrive split across arbitrarily small deltas, so a suffix
// that could be the start of the tag is held back until the next call.
type ThinkParser struct {
	insideThinking bool
	buffer         string
}

// NewThinkParser returns a parser positioned in reasoning mode.
func NewThinkParser() *ThinkParser {
	return &ThinkParser{insideThinking: true}
}

// ProcessChunk consumes one delta and returns the segments it completes.
// Every returned segment has non-empty text. Concatenating all segments over
// a whole stream reproduces the input with every literal </think> removed.
func (p *ThinkParser) ProcessChunk(delta string) []Segment {
	p.buffer += delta

	var out []Segment
	for {
		if i := strings.Index(p.buffer, thinkCloseTag); i >= 0 {
			if i > 0 {
				out = append(out, Segment{Text: p.buffer[:i], Reasoning: p.insideThinking})
			}
			p.buffer = p.buffer[i+len(thinkCloseTag):]
			p.insideThinking = false
			continue
		}

		keep := partialTagSuffix(p.buffer)
		emit := len(p.buffer) - keep
		if emit > 0 {
			out = append(out, Segment{Text: p.buffer[:emit], Reasoning: p.insideThinking})
			p.buffer = p.buffer[emit:]
		}
		return out
	}
}

// Flush releases whatever is still buffered at end of stream, including a
// held-back partial tag that never completed.
func (p *ThinkParser) Flush() (Segment, bool) {
	if p.buffer == "" {
		return Segment{}, false
	}
	seg := Segment{Text: p.buffer, Reasoning: p.insideThinking}
	p.buffer = ""
	return seg, true
}

// partialTagSuffix returns the length of the longest proper prefix of
// </think> that the buffer ends with.
func partialTagSuffix(buffer string) int {
	max := len(thinkCloseTag) - 1
	if len(buffer) < max {
		max = len(buffer)
	}
	for k := max; k >= 1; k-- {
		if strings.HasSuffix(buffer, thinkCloseTag[:k]) {
			return k
		}
	}
	return 0
}

// SplitReasoning separates reasoning from answer in a complete (non-streamed)
// content string. A full <think>…</think> block is preferred; a bare closing
// tag splits the text at that point; content without either is all answer.
func SplitReasoning(content string) (reasoning, answer string) {
	if m := thinkBlockRe.FindStringSubmatchIndex(content); m != nil {
		reasoning = content[m[2]:m[3]]
		answer = content[:m[0]] + content[m[1]:]
		return reasoning, answer
	}
	if i := strings.Index(content, thinkCloseTag); i >= 0 {
		return content[:i], content[i+len(thinkCloseTag):]
	}
	return "", content
}
