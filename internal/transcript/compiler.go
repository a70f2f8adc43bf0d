package transcript

import (
	"log/slog"
	"strings"
	"time"
)

// Span marks an emphasized byte range within a segment's text. Spans never
// cross segment boundaries; a pause inside an emphasis closes the span at the
// split point and reopens it in the next segment.
type Span struct {
	Start int
	End   int
}

// Segment is the smallest synthesis unit: marker-free text plus the silence
// that follows it. A segment with empty text contributes only its silence.
type Segment struct {
	Speaker         string
	Text            string
	Emphasis        []Span
	TrailingSilence time.Duration
}

// Compiler expands turns into ordered synthesis segments.
type Compiler struct {
	turnGap time.Duration
	log     *slog.Logger
}

// NewCompiler builds a compiler. turnGap is the silence inserted between
// consecutive turns, applied as trailing silence on each turn's last segment.
func NewCompiler(turnGap time.Duration, log *slog.Logger) *Compiler {
	return &Compiler{
		turnGap: turnGap,
		log:     log.With(slog.String("component", "segment-compiler")),
	}
}

// Compile expands every turn in order. Segment order is a total order
// consistent with turn order.
func (c *Compiler) Compile(turns []Turn) []Segment {
	var segments []Segment
	for i, turn := range turns {
		segs := c.CompileTurn(turn)
		if len(segs) > 0 && i < len(turns)-1 {
			segs[len(segs)-1].TrailingSilence += c.turnGap
		}
		segments = append(segments, segs...)
	}
	return segments
}

// CompileTurn scans one turn left to right. Pause markers split the text,
// becoming trailing silence on the segment before them; emphasis tags are
// stripped but recorded as styling spans. An unterminated emphasis extends
// to the end of the turn.
func (c *Compiler) CompileTurn(turn Turn) []Segment {
	var (
		segments  []Segment
		text      strings.Builder
		spans     []Span
		emphOpen  bool
		emphStart = -1
	)

	flush := func(silence time.Duration) {
		if emphOpen && emphStart >= 0 && emphStart < text.Len() {
			spans = append(spans, Span{Start: emphStart, End: text.Len()})
		}
		if text.Len() > 0 || silence > 0 {
			segments = append(segments, Segment{
				Speaker:         turn.Speaker,
				Text:            text.String(),
				Emphasis:        spans,
				TrailingSilence: silence,
			})
		}
		text.Reset()
		spans = nil
		emphStart = -1
	}

	appendText := func(piece string) {
		words := strings.Fields(piece)
		if len(words) == 0 {
			return
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		if emphOpen && emphStart < 0 {
			emphStart = text.Len()
		}
		text.WriteString(strings.Join(words, " "))
	}

	for _, tok := range tokenize(turn.Text) {
		switch tok.typ {
		case tokenText:
			appendText(tok.text)
		case tokenMarker:
			switch {
			case tok.marker.IsPause():
				flush(tok.marker.Silence)
			case tok.marker.Kind == MarkerEmphasisStart:
				if emphOpen {
					c.log.Warn("nested emphasis marker ignored", slog.String("speaker", turn.Speaker))
					continue
				}
				emphOpen = true
				emphStart = -1
			case tok.marker.Kind == MarkerEmphasisEnd:
				if !emphOpen {
					c.log.Warn("dangling emphasis close ignored", slog.String("speaker", turn.Speaker))
					continue
				}
				if emphStart >= 0 && emphStart < text.Len() {
					spans = append(spans, Span{Start: emphStart, End: text.Len()})
				}
				emphOpen = false
				emphStart = -1
			}
		}
	}

	if emphOpen {
		c.log.Warn("unterminated emphasis marker, extending to end of turn",
			slog.String("speaker", turn.Speaker))
	}
	flush(0)

	return segments
}

// TotalSilence sums the trailing silences of segs. Useful for duration
// accounting and tests.
func TotalSilence(segs []Segment) time.Duration {
	var total time.Duration
	for _, s := range segs {
		total += s.TrailingSilence
	}
	return total
}
