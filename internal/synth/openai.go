package synth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/diacast/diacast/internal/config"
	"github.com/diacast/diacast/internal/transcript"
)

// openAISynth produces speech through the OpenAI audio API. Audio is
// requested as raw PCM so clip durations are exact and assembly never has to
// decode a compressed stream.
type openAISynth struct {
	client        *openai.Client
	model         string
	sampleRate    int
	channels      int
	maxChunkChars int
	log           *slog.Logger
}

func NewOpenAISynth(cfg config.ProviderConfig, log *slog.Logger) Synthesizer {
	return &openAISynth{
		client:        openai.NewClient(cfg.APIKey),
		model:         cfg.TTSModel,
		sampleRate:    cfg.SampleRate,
		channels:      cfg.Channels,
		maxChunkChars: cfg.MaxChunkChars,
		log:           log.With(slog.String("component", "openai-synth")),
	}
}

func (o *openAISynth) Synthesize(ctx context.Context, req Request) (Clip, error) {
	var pcm []byte
	chunks := splitForLimit(req.Text, req.Emphasis, o.maxChunkChars)
	if len(chunks) > 1 {
		o.log.Debug("segment exceeds provider limit, chunking",
			slog.Int("segment", req.Index), slog.Int("chunks", len(chunks)))
	}
	for _, ch := range chunks {
		data, err := o.speak(ctx, renderInput(ch.text, ch.spans), req.Voice)
		if err != nil {
			return Clip{}, err
		}
		pcm = append(pcm, data...)
	}
	return Clip{
		Index:      req.Index,
		PCM:        pcm,
		SampleRate: o.sampleRate,
		Channels:   o.channels,
	}, nil
}

func (o *openAISynth) speak(ctx context.Context, input, voice string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          input,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return data, nil
}

// renderInput rewrites emphasis spans into the cue the provider understands:
// emphasized runs are wrapped in asterisks, which the speech models read as
// vocal stress. Timing is unaffected.
func renderInput(text string, spans []transcript.Span) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(text) {
			continue
		}
		b.WriteString(text[pos:s.Start])
		b.WriteByte('*')
		b.WriteString(text[s.Start:s.End])
		b.WriteByte('*')
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
