package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diacast/diacast/internal/audio"
	"github.com/diacast/diacast/internal/bus"
	"github.com/diacast/diacast/internal/config"
	"github.com/diacast/diacast/internal/history"
	"github.com/diacast/diacast/internal/natsserver"
	"github.com/diacast/diacast/internal/podcast"
	"github.com/diacast/diacast/internal/synth"
)

// Runtime owns the daemon lifecycle: telemetry, the bus, the episode log,
// the synthesis pipeline and the HTTP health surface.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	natsServer  *natsserver.EmbeddedServer
	busClient   *bus.Client
	store       *history.Store
	service     *podcast.Service
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings every component up, blocks until ctx is cancelled, then
// shuts the components down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	natsServer, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS server: %w", err)
	}
	r.natsServer = natsServer

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.natsServer.Shutdown()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	r.busClient = busClient

	store, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		r.busClient.Close()
		r.natsServer.Shutdown()
		return fmt.Errorf("failed to open episode log: %w", err)
	}
	r.store = store

	synthesizer := r.newSynthesizer()
	dispatcher := synth.NewDispatcher(
		synthesizer,
		r.cfg.Provider.Workers,
		time.Duration(r.cfg.Provider.CallTimeoutMS)*time.Millisecond,
		r.cfg.Provider.MaxRetries,
		r.logger,
	)

	encoder, err := r.newEncoder()
	if err != nil {
		r.store.Close()
		r.busClient.Close()
		r.natsServer.Shutdown()
		return fmt.Errorf("failed to configure encoder: %w", err)
	}

	generator := podcast.NewGenerator(r.cfg, dispatcher, encoder, r.store, r.logger)
	r.service = podcast.NewService(ctx, r.cfg, r.busClient, generator, r.logger)
	if err := r.service.Start(); err != nil {
		r.store.Close()
		r.busClient.Close()
		r.natsServer.Shutdown()
		return fmt.Errorf("failed to start podcast service: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("provider", r.cfg.Provider.Mode),
		slog.String("output_format", r.cfg.Output.Format))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	r.service.Close()
	if err := r.store.Close(); err != nil {
		r.logger.Error("episode log close error", slog.String("error", err.Error()))
	}
	r.busClient.Close()
	r.natsServer.Shutdown()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) newSynthesizer() synth.Synthesizer {
	if r.cfg.Provider.Mode == "mock" {
		r.logger.Warn("running with the mock synthesizer, output will be silent")
		return synth.NewMockSynth(r.cfg.Provider.SampleRate, r.cfg.Provider.Channels)
	}
	return synth.NewOpenAISynth(r.cfg.Provider, r.logger)
}

func (r *Runtime) newEncoder() (audio.Encoder, error) {
	if r.cfg.Output.Format == "wav" {
		return audio.NewWAVEncoder(), nil
	}
	return audio.NewExecEncoder(r.cfg.Output.EncoderCommand, r.logger)
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":      "ok",
		"service":     r.cfg.ServiceName,
		"environment": r.cfg.Environment,
		"provider":    r.cfg.Provider.Mode,
		"tts_model":   r.cfg.Provider.TTSModel,
		"speakers":    fmt.Sprintf("%s and %s", r.cfg.Speakers.Speaker1Name, r.cfg.Speakers.Speaker2Name),
		"output_dir":  r.cfg.Output.Directory,
		"bus":         r.busClient.Healthy(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.busClient.Healthy() && r.service.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
