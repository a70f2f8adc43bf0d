package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
)

// Encoder persists a track to disk. Implementations write to a temporary
// path and rename on success so no partial file is ever visible.
type Encoder interface {
	Extension() string
	Encode(ctx context.Context, track *Track, path string) error
}

type wavEncoder struct{}

// NewWAVEncoder encodes tracks as 16-bit PCM WAV. Used when no external MP3
// encoder is available, and throughout the tests.
func NewWAVEncoder() Encoder {
	return &wavEncoder{}
}

func (wavEncoder) Extension() string { return ".wav" }

func (wavEncoder) Encode(ctx context.Context, track *Track, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	format := track.Format()
	enc := wav.NewEncoder(f, format.SampleRate, 16, format.Channels, 1)
	samples := decodeS16LE(track.PCM())
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// execEncoder shells out to an external encoder (ffmpeg or lame), feeding
// raw PCM on stdin. The command is a template with {rate}, {channels} and
// {output} placeholders.
type execEncoder struct {
	args []string
	log  *slog.Logger
}

func NewExecEncoder(command string, log *slog.Logger) (Encoder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse encoder command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("encoder command empty")
	}
	if !strings.Contains(command, "{output}") {
		return nil, errors.New("encoder command must contain an {output} placeholder")
	}
	return &execEncoder{args: args, log: log.With(slog.String("component", "mp3-encoder"))}, nil
}

func (execEncoder) Extension() string { return ".mp3" }

func (e *execEncoder) Encode(ctx context.Context, track *Track, path string) error {
	tmp := path + ".tmp"
	format := track.Format()

	args := make([]string, len(e.args))
	for i, a := range e.args {
		a = strings.ReplaceAll(a, "{rate}", strconv.Itoa(format.SampleRate))
		a = strings.ReplaceAll(a, "{channels}", strconv.Itoa(format.Channels))
		a = strings.ReplaceAll(a, "{output}", tmp)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = bytes.NewReader(track.PCM())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("encoder command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return os.Rename(tmp, path)
}
