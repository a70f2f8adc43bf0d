package synth

import (
	"strings"

	"github.com/diacast/diacast/internal/transcript"
)

// chunk is one provider-sized slice of a segment's text with its emphasis
// spans re-based onto the slice.
type chunk struct {
	text  string
	spans []transcript.Span
}

// splitForLimit cuts text into pieces no longer than limit. Cuts land on the
// nearest preceding sentence boundary, falling back to whitespace, and never
// inside an emphasis span: when the limit falls inside a span the cut
// retreats to before the span start.
func splitForLimit(text string, spans []transcript.Span, limit int) []chunk {
	if limit <= 0 || len(text) <= limit {
		return []chunk{{text: text, spans: spans}}
	}

	var chunks []chunk
	for len(text) > limit {
		cut := findCut(text, spans, limit)
		if cut <= 0 {
			// A single span wider than the limit leaves no legal cut;
			// split at the limit as a last resort.
			cut = limit
		}

		prefix := strings.TrimRight(text[:cut], " ")
		var prefixSpans []transcript.Span
		for _, s := range spans {
			if s.End <= len(prefix) {
				prefixSpans = append(prefixSpans, s)
			}
		}
		chunks = append(chunks, chunk{text: prefix, spans: prefixSpans})

		rest := text[cut:]
		trimmed := len(rest) - len(strings.TrimLeft(rest, " "))
		shift := cut + trimmed
		text = rest[trimmed:]
		var restSpans []transcript.Span
		for _, s := range spans {
			if s.Start >= shift {
				restSpans = append(restSpans, transcript.Span{Start: s.Start - shift, End: s.End - shift})
			}
		}
		spans = restSpans
	}
	if text != "" {
		chunks = append(chunks, chunk{text: text, spans: spans})
	}
	return chunks
}

// findCut returns the best cut position <= limit, or 0 if none exists.
func findCut(text string, spans []transcript.Span, limit int) int {
	sentence, space := 0, 0
	for i := limit; i >= 1; i-- {
		if insideSpan(i, spans) {
			continue
		}
		switch text[i-1] {
		case '.', '!', '?':
			if sentence == 0 {
				sentence = i
			}
		case ' ':
			if space == 0 {
				space = i
			}
		}
		if sentence > 0 {
			break
		}
	}
	if sentence > 0 {
		return sentence
	}
	return space
}

// insideSpan reports whether cutting at pos would split a span.
func insideSpan(pos int, spans []transcript.Span) bool {
	for _, s := range spans {
		if s.Start < pos && pos < s.End {
			return true
		}
	}
	return false
}
