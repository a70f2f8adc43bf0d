package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/diacast/diacast/internal/audio"
	"github.com/diacast/diacast/internal/config"
	"github.com/diacast/diacast/internal/history"
	"github.com/diacast/diacast/internal/protocol"
	"github.com/diacast/diacast/internal/synth"
	"github.com/diacast/diacast/internal/transcript"
)

// Generator runs the full pipeline for one request: parse, compile,
// dispatch synthesis, assemble, persist, report.
type Generator struct {
	cfg        config.Config
	parser     *transcript.Parser
	compiler   *transcript.Compiler
	dispatcher *synth.Dispatcher
	encoder    audio.Encoder
	store      *history.Store
	log        *slog.Logger
	clock      func() time.Time

	generated    metric.Int64Counter
	failed       metric.Int64Counter
	audioSeconds metric.Float64Counter
}

func NewGenerator(cfg config.Config, dispatcher *synth.Dispatcher, encoder audio.Encoder, store *history.Store, log *slog.Logger) *Generator {
	log = log.With(slog.String("component", "podcast-generator"))
	g := &Generator{
		cfg: cfg,
		parser: transcript.NewParser(
			cfg.Speakers.Speaker1Name,
			cfg.Speakers.Speaker2Name,
			cfg.Speakers.StrictAttribution,
			log,
		),
		compiler:   transcript.NewCompiler(secondsToDuration(cfg.Speakers.TurnGapSeconds), log),
		dispatcher: dispatcher,
		encoder:    encoder,
		store:      store,
		log:        log,
		clock:      time.Now,
	}

	meter := otel.Meter("github.com/diacast/diacast/internal/podcast")
	g.generated, _ = meter.Int64Counter("diacast.podcasts.generated",
		metric.WithDescription("Podcasts generated successfully"))
	g.failed, _ = meter.Int64Counter("diacast.podcasts.failed",
		metric.WithDescription("Podcast generations aborted with an error"))
	g.audioSeconds, _ = meter.Float64Counter("diacast.audio.seconds",
		metric.WithDescription("Seconds of podcast audio produced"))

	return g
}

// Generate produces one podcast. On any fatal error it returns the error
// and guarantees no output file was written.
func (g *Generator) Generate(ctx context.Context, req protocol.GenerateRequest) (protocol.GenerateResult, error) {
	start := g.clock()
	result, err := g.generate(ctx, req)
	if err != nil {
		g.failed.Add(ctx, 1)
		g.log.Error("podcast generation failed",
			slog.String("request_id", req.RequestID),
			slog.String("title", req.Title),
			slog.String("kind", string(KindOf(err))),
			slog.String("error", err.Error()))
		return protocol.GenerateResult{}, err
	}
	g.generated.Add(ctx, 1)
	g.audioSeconds.Add(ctx, result.ActualDurationMin*60)
	g.log.Info("podcast generated",
		slog.String("request_id", req.RequestID),
		slog.String("title", req.Title),
		slog.String("path", result.AudioPath),
		slog.Float64("duration_min", result.ActualDurationMin),
		slog.Duration("elapsed", g.clock().Sub(start)))
	return result, nil
}

func (g *Generator) generate(ctx context.Context, req protocol.GenerateRequest) (protocol.GenerateResult, error) {
	length, err := g.validate(req)
	if err != nil {
		return protocol.GenerateResult{}, err
	}

	turns, err := g.parser.Parse(req.Dialogue)
	if err != nil {
		return protocol.GenerateResult{}, wrapKind(KindParse, err)
	}
	if len(turns) == 0 {
		return protocol.GenerateResult{}, errKind(KindValidation, "no turns found in dialogue")
	}

	segments := g.compiler.Compile(turns)

	clips, err := g.dispatcher.Dispatch(ctx, segments, g.voiceFor)
	if err != nil {
		return protocol.GenerateResult{}, wrapKind(KindSynthesis, err)
	}

	target := audio.Format{
		SampleRate: g.cfg.Provider.SampleRate,
		Channels:   g.cfg.Provider.Channels,
	}
	pieces := make([]audio.Piece, len(segments))
	for i, seg := range segments {
		pieces[i].TrailingSilence = seg.TrailingSilence
		if clips[i] != nil {
			pieces[i].Clip = &audio.Clip{
				PCM:    clips[i].PCM,
				Format: audio.Format{SampleRate: clips[i].SampleRate, Channels: clips[i].Channels},
			}
		}
	}
	track, err := audio.Assemble(pieces, target)
	if err != nil {
		return protocol.GenerateResult{}, wrapKind(KindAssembly, err)
	}

	path, sizeMB, err := g.persist(ctx, req.Title, track)
	if err != nil {
		return protocol.GenerateResult{}, err
	}

	result := protocol.GenerateResult{
		RequestID:         req.RequestID,
		Title:             req.Title,
		TargetDurationMin: length,
		ActualDurationMin: roundTo(track.Duration().Minutes(), 2),
		WordCount:         transcript.WordCount(req.Dialogue),
		SegmentsProcessed: len(segments),
		Speakers:          fmt.Sprintf("%s and %s", g.cfg.Speakers.Speaker1Name, g.cfg.Speakers.Speaker2Name),
		TTSModelUsed:      g.cfg.Provider.TTSModel,
		GPTModelUsed:      g.cfg.Provider.GPTModel,
		AudioPath:         path,
		FileSizeMB:        roundTo(sizeMB, 2),
		CreatedAt:         g.clock().UTC(),
		Success:           true,
	}

	if err := g.store.Append(ctx, history.Episode{
		RequestID:     req.RequestID,
		Title:         result.Title,
		AudioPath:     result.AudioPath,
		TargetMinutes: result.TargetDurationMin,
		ActualMinutes: result.ActualDurationMin,
		WordCount:     result.WordCount,
		SegmentCount:  result.SegmentsProcessed,
		FileSizeMB:    result.FileSizeMB,
	}); err != nil {
		// History is advisory; the episode itself is already on disk.
		g.log.Warn("failed to record episode", slog.String("error", err.Error()))
	}

	return result, nil
}

// validate resolves the target length and rejects malformed requests before
// any synthesis call happens.
func (g *Generator) validate(req protocol.GenerateRequest) (int, error) {
	if strings.TrimSpace(req.Title) == "" {
		return 0, errKind(KindValidation, "title must not be empty")
	}
	if strings.TrimSpace(req.Dialogue) == "" {
		return 0, errKind(KindValidation, "no turns found in dialogue")
	}
	length := g.cfg.DefaultLengthMinutes
	if req.LengthMinutes != nil {
		length = *req.LengthMinutes
	}
	if length < 1 || length > 60 {
		return 0, errKind(KindValidation, "podcast_length %d is out of range [1,60]", length)
	}
	return length, nil
}

func (g *Generator) voiceFor(speaker string) string {
	if speaker == g.cfg.Speakers.Speaker2Name {
		return g.cfg.Speakers.Speaker2Voice
	}
	return g.cfg.Speakers.Speaker1Voice
}

// persist writes the track under the output directory as
// <title-slug>-<timestamp>.<ext>. The encoder writes to a temporary path and
// renames, so a failure leaves nothing behind.
func (g *Generator) persist(ctx context.Context, title string, track *audio.Track) (string, float64, error) {
	dir := g.cfg.Output.Directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, errKind(KindIO, "create output directory %s: %v", dir, err)
	}

	name := fmt.Sprintf("%s-%s%s", slugify(title), g.clock().Format("20060102-150405"), g.encoder.Extension())
	path := filepath.Join(dir, name)

	if err := g.encoder.Encode(ctx, track, path); err != nil {
		if ctx.Err() != nil {
			return "", 0, wrapKind(KindInternal, ctx.Err())
		}
		return "", 0, errKind(KindIO, "write %s: %v", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, errKind(KindIO, "stat %s: %v", path, err)
	}
	return path, float64(info.Size()) / (1024 * 1024), nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "podcast"
	}
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	return slug
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func roundTo(v float64, places int) float64 {
	shift := 1.0
	for i := 0; i < places; i++ {
		shift *= 10
	}
	return float64(int64(v*shift+0.5)) / shift
}
