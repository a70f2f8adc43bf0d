package podcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diacast/diacast/internal/audio"
	"github.com/diacast/diacast/internal/config"
	"github.com/diacast/diacast/internal/history"
	"github.com/diacast/diacast/internal/protocol"
	"github.com/diacast/diacast/internal/synth"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// failSynth fails every call for one segment index and otherwise behaves
// like the silent mock.
type failSynth struct {
	inner  synth.Synthesizer
	failAt int
}

func (f *failSynth) Synthesize(ctx context.Context, req synth.Request) (synth.Clip, error) {
	if req.Index == f.failAt {
		return synth.Clip{}, errors.New("provider unavailable")
	}
	return f.inner.Synthesize(ctx, req)
}

func newTestGenerator(t *testing.T, s synth.Synthesizer) (*Generator, config.Config) {
	t.Helper()
	log := newLogger()

	cfg := config.Default()
	cfg.Provider.Mode = "mock"
	cfg.Output.Directory = t.TempDir()
	cfg.Output.Format = "wav"
	cfg.History.Path = ""
	if s == nil {
		s = synth.NewMockSynth(cfg.Provider.SampleRate, cfg.Provider.Channels)
	}

	store, err := history.Open(context.Background(), cfg.History, log)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dispatcher := synth.NewDispatcher(s, cfg.Provider.Workers, 5*time.Second, 0, log)
	return NewGenerator(cfg, dispatcher, audio.NewWAVEncoder(), store, log), cfg
}

func intPtr(v int) *int { return &v }

func TestGenerateProducesEpisode(t *testing.T) {
	gen, cfg := newTestGenerator(t, nil)
	gen.clock = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	req := protocol.GenerateRequest{
		RequestID: "req-1",
		Title:     "Tech Talk: Episode #1!",
		Dialogue:  "Alex: Hello [pause-short] world.\nJordan: Nice to be here.",
	}
	result, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success {
		t.Fatal("expected success flag")
	}
	if result.RequestID != "req-1" {
		t.Fatalf("unexpected request id %q", result.RequestID)
	}
	if result.TargetDurationMin != cfg.DefaultLengthMinutes {
		t.Fatalf("expected default length %d, got %d", cfg.DefaultLengthMinutes, result.TargetDurationMin)
	}
	// Turn one compiles to "Hello" and "world.", turn two to one segment.
	if result.SegmentsProcessed != 3 {
		t.Fatalf("expected 3 segments, got %d", result.SegmentsProcessed)
	}
	if result.WordCount != 8 {
		t.Fatalf("expected 8 words, got %d", result.WordCount)
	}
	if result.Speakers != "Alex and Jordan" {
		t.Fatalf("unexpected speakers %q", result.Speakers)
	}

	base := filepath.Base(result.AudioPath)
	if base != "tech-talk-episode-1-20250314-092653.wav" {
		t.Fatalf("unexpected file name %q", base)
	}
	info, err := os.Stat(result.AudioPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if info.Size() == 0 || result.FileSizeMB <= 0 {
		t.Fatalf("expected non-empty output, size=%d sizeMB=%v", info.Size(), result.FileSizeMB)
	}

	// Mock speech at 150ms/word plus 0.3s pause and 0.5s turn gap: 1.7s.
	want := 1.7 / 60
	if math.Abs(result.ActualDurationMin-want) > 0.01 {
		t.Fatalf("unexpected duration %v min, want about %v", result.ActualDurationMin, want)
	}
}

func TestGenerateLengthValidation(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)
	dialogue := "Alex: Hi.\nJordan: Hi back."

	for _, length := range []int{0, -5, 61} {
		req := protocol.GenerateRequest{
			Title:         "Bad length",
			Dialogue:      dialogue,
			LengthMinutes: intPtr(length),
		}
		_, err := gen.Generate(context.Background(), req)
		if KindOf(err) != KindValidation {
			t.Fatalf("length %d: expected validation error, got %v", length, err)
		}
	}

	req := protocol.GenerateRequest{
		Title:         "Explicit length",
		Dialogue:      dialogue,
		LengthMinutes: intPtr(25),
	}
	result, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TargetDurationMin != 25 {
		t.Fatalf("expected target 25, got %d", result.TargetDurationMin)
	}
}

func TestGenerateEmptyDialogue(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	for _, dialogue := range []string{"", "   \n\t"} {
		req := protocol.GenerateRequest{Title: "Empty", Dialogue: dialogue}
		_, err := gen.Generate(context.Background(), req)
		if KindOf(err) != KindValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "no turns found") {
			t.Fatalf("unexpected message: %v", err)
		}
	}
}

func TestGenerateEmptyTitle(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	req := protocol.GenerateRequest{Title: "  ", Dialogue: "Alex: Hi."}
	_, err := gen.Generate(context.Background(), req)
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateUnattributedDialogue(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	req := protocol.GenerateRequest{
		Title:    "Broken transcript",
		Dialogue: "this line has no speaker label\nAlex: Hi.",
	}
	_, err := gen.Generate(context.Background(), req)
	if KindOf(err) != KindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestGenerateSynthesisFailureLeavesNoFile(t *testing.T) {
	mock := synth.NewMockSynth(24000, 1)
	gen, cfg := newTestGenerator(t, &failSynth{inner: mock, failAt: 3})

	req := protocol.GenerateRequest{
		Title: "Doomed",
		Dialogue: "Alex: one.\nJordan: two.\nAlex: three.\nJordan: four.\n" +
			"Alex: five.\nJordan: six.",
	}
	_, err := gen.Generate(context.Background(), req)
	if KindOf(err) != KindSynthesis {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	var synthErr *synth.Error
	if !errors.As(err, &synthErr) || synthErr.Index != 3 {
		t.Fatalf("expected segment 3 failure, got %v", err)
	}

	entries, readErr := os.ReadDir(cfg.Output.Directory)
	if readErr != nil {
		t.Fatalf("read output dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty output dir, found %d entries", len(entries))
	}
}

func TestGenerateWordCountIgnoresMarkers(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	plain := protocol.GenerateRequest{
		Title:    "Plain",
		Dialogue: "Alex: Hello world today.\nJordan: Good morning everyone.",
	}
	marked := protocol.GenerateRequest{
		Title: "Marked",
		Dialogue: "Alex: Hello [pause-long] world [breath] today.\n" +
			"Jordan: [thoughtful] Good [emphasis]morning[/emphasis] everyone.",
	}

	plainResult, err := gen.Generate(context.Background(), plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	markedResult, err := gen.Generate(context.Background(), marked)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plainResult.WordCount != markedResult.WordCount {
		t.Fatalf("markers changed word count: %d vs %d",
			plainResult.WordCount, markedResult.WordCount)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Tech Talk", "tech-talk"},
		{"  What's New?! ", "what-s-new"},
		{"###", "podcast"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Fatalf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
