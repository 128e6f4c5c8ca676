package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Broadcast modes.
const (
	ModeLocal = "local"
	ModeNATS  = "nats"
)

// Config holds configuration for the gateway service
type Config struct {
	Mode             string
	ConnectionConfig ConnectionConfig
	Publisher        JetStreamConfig
	Consumer         JetStreamConsumerConfig
	Clock            clockwork.Clock
}

func DefaultConfig() Config {
	return Config{
		Mode:             ModeLocal,
		ConnectionConfig: DefaultConnectionConfig(),
		Publisher:        DefaultJetStreamConfig(),
		Consumer:         DefaultJetStreamConsumerConfig(),
	}
}

// GameService is the part of game.Service the gateway drives.
type GameService interface {
	Dispatcher
	RoomService
}

// Service is the gateway: WebSocket fan-out, optional JetStream relay and
// the REST routes.
type Service struct {
	mode string

	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	publisher         *JetStreamPublisher
	eventConsumer     *EventConsumer

	wg sync.WaitGroup
}

// NewService builds the gateway. In nats mode it connects to JetStream; the
// returned Broadcaster then publishes there and a consumer relays events back
// to local sockets.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeLocal
	}

	cm := NewConnectionManager(cfg.ConnectionConfig, cfg.Clock)
	s := &Service{
		mode:              mode,
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}

	switch mode {
	case ModeLocal:
	case ModeNATS:
		publisher, err := NewJetStreamPublisher(ctx, cfg.Publisher)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		consumer, err := NewEventConsumer(ctx, cm, cfg.Consumer)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.publisher = publisher
		s.eventConsumer = consumer
	default:
		return nil, fmt.Errorf("unknown broadcast mode %q", cfg.Mode)
	}
	return s, nil
}

// Broadcaster is what the game service should notify.
func (s *Service) Broadcaster() game.Broadcaster {
	if s.publisher != nil {
		return s.publisher
	}
	return s.connectionManager
}

// Bind attaches the game service that handles socket commands and REST calls.
func (s *Service) Bind(svc GameService) {
	s.connectionManager.SetDispatcher(svc)
	s.stateHandler = NewStateHandler(svc)
}

func (s *Service) ConnectionManager() *ConnectionManager { return s.connectionManager }

// Start runs the background loops until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Str("mode", s.mode).Msg("starting gateway service")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.connectionManager.Start(ctx)
	}()

	if s.publisher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.publisher.Run(ctx)
		}()
	}
	if s.eventConsumer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}
}

// Stop waits for the loops started by Start and closes NATS connections.
// Cancel the Start context first.
func (s *Service) Stop() error {
	s.wg.Wait()
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes. Bind must have
// been called.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	if s.stateHandler != nil {
		s.stateHandler.RegisterStateRoutes(mux)
	}
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	log.Info().Msg("gateway routes registered")
}
