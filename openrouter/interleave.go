// Reasoning interleaver.
//
// Models routed through OpenRouter may emit reasoning tokens before, between
// or instead of content tokens, and the provider does not emit boundaries of
// its own. The interleaver brackets each contiguous reasoning run in think
// markers so the concatenated transcript stays well-formed no matter how the
// fragments arrive.

package openrouter

// Markers bracketing reasoning text in the output transcript.
const (
	reasoningOpen  = "<think>\n"
	reasoningClose = "\n</think>\n\n"
)

// interleaver tracks whether the transcript is currently inside a reasoning
// block. One instance serves exactly one request; state is never shared.
type interleaver struct {
	inReasoning bool
}

// consume maps one upstream event to the output fragments it contributes,
// in emission order. It guarantees the open/close pair is balanced: the
// opening marker is emitted once when reasoning first appears, the closing
// marker once when content follows or the stream ends.
func (st *interleaver) consume(ev Event) []string {
	var out []string

	if ev.Reasoning != "" {
		if !st.inReasoning {
			out = append(out, reasoningOpen)
			st.inReasoning = true
		}
		out = append(out, ev.Reasoning)
	}

	if ev.Content != "" {
		if st.inReasoning {
			out = append(out, reasoningClose)
			st.inReasoning = false
		}
		out = append(out, ev.Content)
	}

	// A stream can end while still reasoning; the block must still close.
	if ev.Done && st.inReasoning {
		out = append(out, reasoningClose)
		st.inReasoning = false
	}

	return out
}

// wrapReasoning is the one-shot equivalent of the interleaver, applied to a
// complete non-streaming result. Stateless: identical inputs always produce
// identical output.
func wrapReasoning(reasoning, content string) string {
	if reasoning == "" {
		return content
	}
	return reasoningOpen + reasoning + reasoningClose + content
}
