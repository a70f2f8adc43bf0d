package synth

import (
	"strings"
	"testing"

	"github.com/diacast/diacast/internal/transcript"
)

func TestSplitShortTextUntouched(t *testing.T) {
	chunks := splitForLimit("short sentence.", nil, 100)
	if len(chunks) != 1 || chunks[0].text != "short sentence." {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSplitAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence is a bit longer and continues."
	chunks := splitForLimit(text, nil, 50)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].text != "First sentence here." {
		t.Fatalf("unexpected first chunk: %q", chunks[0].text)
	}
	if chunks[1].text != "Second sentence is a bit longer and continues." {
		t.Fatalf("unexpected second chunk: %q", chunks[1].text)
	}
}

func TestSplitRetreatsBeforeSpan(t *testing.T) {
	// The limit falls inside the emphasized range; the cut must land before
	// the span starts so the span survives in one piece.
	text := "A plain opening sentence. Now the emphasized finale arrives"
	start := strings.Index(text, "emphasized")
	span := transcript.Span{Start: start, End: len(text)}
	limit := start + 5

	chunks := splitForLimit(text, []transcript.Span{span}, limit)
	for i, ch := range chunks {
		for _, s := range ch.spans {
			if s.Start < 0 || s.End > len(ch.text) {
				t.Fatalf("chunk %d span %+v out of bounds for %q", i, s, ch.text)
			}
			if got := ch.text[s.Start:s.End]; got != "emphasized finale arrives" {
				t.Fatalf("span covers %q", got)
			}
		}
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %+v", chunks)
	}
	if chunks[0].text != "A plain opening sentence." {
		t.Fatalf("unexpected first chunk: %q", chunks[0].text)
	}
}

func TestSplitSpansRebased(t *testing.T) {
	text := "Alpha beta. Gamma delta epsilon"
	start := strings.Index(text, "delta")
	spans := []transcript.Span{{Start: start, End: start + len("delta")}}
	chunks := splitForLimit(text, spans, 12)
	var found bool
	for _, ch := range chunks {
		for _, s := range ch.spans {
			found = true
			if got := ch.text[s.Start:s.End]; got != "delta" {
				t.Fatalf("rebased span covers %q", got)
			}
		}
	}
	if !found {
		t.Fatalf("span lost during split: %+v", chunks)
	}
}

func TestRenderInputWrapsEmphasis(t *testing.T) {
	text := "this really matters now"
	spans := []transcript.Span{{Start: 5, End: 19}}
	if got := renderInput(text, spans); got != "this *really matters* now" {
		t.Fatalf("unexpected render: %q", got)
	}
}
