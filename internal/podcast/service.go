package podcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/diacast/diacast/internal/bus"
	"github.com/diacast/diacast/internal/config"
	"github.com/diacast/diacast/internal/protocol"
	"github.com/diacast/diacast/internal/voices"
)

// Service exposes the generator over the bus as request/reply operations.
// Transport framing beyond that belongs to the host protocol layer.
type Service struct {
	cfg         config.Config
	bus         *bus.Client
	gen         *Generator
	subGenerate *nats.Subscription
	subVoices   *nats.Subscription
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *slog.Logger
}

func NewService(parent context.Context, cfg config.Config, busClient *bus.Client, gen *Generator, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:    cfg,
		bus:    busClient,
		gen:    gen,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "podcast-service")),
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectGenerate, s.handleGenerate)
	if err != nil {
		return err
	}
	s.subGenerate = sub

	sub, err = s.bus.Conn().Subscribe(protocol.SubjectVoices, s.handleVoices)
	if err != nil {
		return err
	}
	s.subVoices = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.subGenerate != nil {
		_ = s.subGenerate.Drain()
	}
	if s.subVoices != nil {
		_ = s.subVoices.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return s.subGenerate != nil && s.subVoices != nil
}

func (s *Service) handleGenerate(msg *nats.Msg) {
	var req protocol.GenerateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode generate request", slogError(err))
		s.respondError(msg, "", KindValidation, "request is not valid JSON")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timeout := time.Duration(s.cfg.Provider.RequestTimeoutMS) * time.Millisecond
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()

		result, err := s.gen.Generate(ctx, req)
		if err != nil {
			s.respondError(msg, req.RequestID, KindOf(err), err.Error())
			return
		}
		s.respond(msg, result)
	}()
}

func (s *Service) handleVoices(msg *nats.Msg) {
	resp := protocol.VoicesResponse{}
	for _, v := range voices.Catalog() {
		resp.Voices = append(resp.Voices, protocol.VoiceInfo{
			ID:          v.ID,
			Label:       v.Label,
			Description: v.Description,
		})
	}
	s.respond(msg, resp)
}

func (s *Service) respond(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal response", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to publish response", slogError(err))
	}
}

func (s *Service) respondError(msg *nats.Msg, requestID string, kind Kind, message string) {
	s.respond(msg, protocol.ErrorInfo{
		RequestID: requestID,
		Success:   false,
		Kind:      string(kind),
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
