package audio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func silentClip(d time.Duration, f Format) *Clip {
	n := int(d * time.Duration(f.bytesPerSecond()) / time.Second)
	n -= n % (2 * f.Channels)
	return &Clip{PCM: make([]byte, n), Format: f}
}

func TestAssembleDurationSums(t *testing.T) {
	target := Format{SampleRate: 24000, Channels: 1}
	pieces := []Piece{
		{Clip: silentClip(time.Second, target), TrailingSilence: 300 * time.Millisecond},
		{Clip: silentClip(2*time.Second, target), TrailingSilence: 700 * time.Millisecond},
		{TrailingSilence: 1200 * time.Millisecond}, // silence-only piece
		{Clip: silentClip(500*time.Millisecond, target)},
	}
	track, err := Assemble(pieces, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1.0 + 0.3 + 2.0 + 0.7 + 1.2 + 0.5
	if got := track.Duration().Seconds(); math.Abs(got-want) > 0.01 {
		t.Fatalf("expected duration %.2fs, got %.2fs", want, got)
	}
}

func TestAssembleNormalizesSampleRate(t *testing.T) {
	target := Format{SampleRate: 24000, Channels: 1}
	low := Format{SampleRate: 12000, Channels: 1}
	pieces := []Piece{{Clip: silentClip(time.Second, low)}}
	track, err := Assemble(pieces, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := track.Duration().Seconds(); math.Abs(got-1.0) > 0.01 {
		t.Fatalf("expected 1s after resample, got %.3fs", got)
	}
	if track.Format() != target {
		t.Fatalf("unexpected track format: %+v", track.Format())
	}
}

func TestAssembleNormalizesChannels(t *testing.T) {
	target := Format{SampleRate: 24000, Channels: 1}
	stereo := Format{SampleRate: 24000, Channels: 2}
	pieces := []Piece{{Clip: silentClip(time.Second, stereo)}}
	track, err := Assemble(pieces, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := track.Duration().Seconds(); math.Abs(got-1.0) > 0.01 {
		t.Fatalf("expected 1s after channel fold, got %.3fs", got)
	}
}

func TestAssembleRejectsOddPCM(t *testing.T) {
	target := Format{SampleRate: 24000, Channels: 1}
	pieces := []Piece{{Clip: &Clip{PCM: []byte{1, 2, 3}, Format: target}}}
	if _, err := Assemble(pieces, target); err == nil {
		t.Fatal("expected error for odd-length pcm")
	}
}

func TestWAVEncoderRoundTrip(t *testing.T) {
	target := Format{SampleRate: 24000, Channels: 1}
	track, err := Assemble([]Piece{
		{Clip: silentClip(time.Second, target), TrailingSilence: 500 * time.Millisecond},
	}, target)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	path := filepath.Join(t.TempDir(), "episode.wav")
	if err := NewWAVEncoder().Encode(context.Background(), track, path); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open encoded file: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("encoder produced an invalid wav file")
	}
	dur, err := dec.Duration()
	if err != nil {
		t.Fatalf("decode duration: %v", err)
	}
	if math.Abs(dur.Seconds()-1.5) > 0.01 {
		t.Fatalf("expected 1.5s wav, got %v", dur)
	}
}

func TestExecEncoderValidation(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewExecEncoder("", log); err == nil {
		t.Fatal("expected error for empty command")
	}
	if _, err := NewExecEncoder("ffmpeg -i pipe:0 out.mp3", log); err == nil {
		t.Fatal("expected error for missing {output} placeholder")
	}
	if _, err := NewExecEncoder("ffmpeg -f s16le -ar {rate} -ac {channels} -i pipe:0 {output}", log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
