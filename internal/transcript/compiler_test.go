package transcript

import (
	"math"
	"strings"
	"testing"
	"time"
)

func compileTurn(t *testing.T, text string) []Segment {
	t.Helper()
	return NewCompiler(0, newLogger()).CompileTurn(Turn{Speaker: "Alex", Text: text})
}

func TestPauseSplitsSegments(t *testing.T) {
	segs := compileTurn(t, "Hello [pause-short] world.")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Text != "Hello" || segs[0].TrailingSilence != 300*time.Millisecond {
		t.Fatalf("unexpected first segment: %+v", segs[0])
	}
	if segs[1].Text != "world." || segs[1].TrailingSilence != 0 {
		t.Fatalf("unexpected second segment: %+v", segs[1])
	}
}

func TestPauseSilenceSums(t *testing.T) {
	segs := compileTurn(t, "a [pause-short] b [pause-medium] c [pause-long] d [pause-short] e")
	want := 2*300*time.Millisecond + 700*time.Millisecond + 1200*time.Millisecond
	got := TotalSilence(segs)
	if math.Abs(got.Seconds()-want.Seconds()) > 0.01 {
		t.Fatalf("expected total silence %v, got %v", want, got)
	}
}

func TestBreathAndThoughtfulDurations(t *testing.T) {
	segs := compileTurn(t, "one [breath] two [thoughtful] three")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].TrailingSilence != 400*time.Millisecond {
		t.Fatalf("breath silence: %v", segs[0].TrailingSilence)
	}
	if segs[1].TrailingSilence != 500*time.Millisecond {
		t.Fatalf("thoughtful silence: %v", segs[1].TrailingSilence)
	}
}

func TestPurePauseSegment(t *testing.T) {
	segs := compileTurn(t, "[pause-long]")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "" || segs[0].TrailingSilence != 1200*time.Millisecond {
		t.Fatalf("unexpected segment: %+v", segs[0])
	}
}

func TestEmphasisSpanRecorded(t *testing.T) {
	segs := compileTurn(t, "This is [emphasis]really important[/emphasis] stuff.")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	seg := segs[0]
	if seg.Text != "This is really important stuff." {
		t.Fatalf("unexpected text: %q", seg.Text)
	}
	if len(seg.Emphasis) != 1 {
		t.Fatalf("expected 1 span, got %d", len(seg.Emphasis))
	}
	if got := seg.Text[seg.Emphasis[0].Start:seg.Emphasis[0].End]; got != "really important" {
		t.Fatalf("span covers %q", got)
	}
}

func TestEmphasisNeverSplitAcrossSegments(t *testing.T) {
	segs := compileTurn(t, "start [emphasis]first half [pause-short] second half[/emphasis] end")
	for _, seg := range segs {
		for _, span := range seg.Emphasis {
			if span.Start < 0 || span.End > len(seg.Text) || span.Start >= span.End {
				t.Fatalf("span %+v out of bounds for text %q", span, seg.Text)
			}
		}
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if got := segs[0].Text[segs[0].Emphasis[0].Start:segs[0].Emphasis[0].End]; got != "first half" {
		t.Fatalf("first span covers %q", got)
	}
	if got := segs[1].Text[segs[1].Emphasis[0].Start:segs[1].Emphasis[0].End]; got != "second half" {
		t.Fatalf("second span covers %q", got)
	}
}

func TestUnterminatedEmphasisExtendsToEnd(t *testing.T) {
	segs := compileTurn(t, "calm then [emphasis]everything after this")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	seg := segs[0]
	if len(seg.Emphasis) != 1 {
		t.Fatalf("expected 1 span, got %d", len(seg.Emphasis))
	}
	if got := seg.Text[seg.Emphasis[0].Start:seg.Emphasis[0].End]; got != "everything after this" {
		t.Fatalf("span covers %q", got)
	}
}

func TestRoundTripText(t *testing.T) {
	raw := "Well [pause-short] I think [emphasis]this matters[/emphasis] a lot [breath] honestly [thoughtful] yes."
	segs := compileTurn(t, raw)
	var parts []string
	for _, seg := range segs {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	if got, want := strings.Join(parts, " "), StripMarkers(raw); got != want {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestUnknownBracketTagsDropped(t *testing.T) {
	segs := compileTurn(t, "Before [SOUND EFFECT: rain] after [TRANSITION] done.")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "Before after done." {
		t.Fatalf("unexpected text: %q", segs[0].Text)
	}
}

func TestWordCountStability(t *testing.T) {
	a := "Alex: Hello there [pause-short] friend."
	b := "Alex:   Hello    there  friend."
	if WordCount(a) != WordCount(b) {
		t.Fatalf("word counts differ: %d vs %d", WordCount(a), WordCount(b))
	}
}

func TestCompileAppliesTurnGap(t *testing.T) {
	turns := []Turn{
		{Speaker: "Alex", Text: "First."},
		{Speaker: "Jordan", Text: "Second."},
	}
	segs := NewCompiler(500*time.Millisecond, newLogger()).Compile(turns)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].TrailingSilence != 500*time.Millisecond {
		t.Fatalf("expected turn gap on first segment, got %v", segs[0].TrailingSilence)
	}
	if segs[1].TrailingSilence != 0 {
		t.Fatalf("expected no gap after final turn, got %v", segs[1].TrailingSilence)
	}
}
