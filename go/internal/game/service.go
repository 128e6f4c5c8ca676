package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/identity"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/packets"
	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
	"github.com/rs/zerolog/log"
)

// Config wires a Service. Clock and Broadcaster are optional.
type Config struct {
	Rules       *rules.Registry
	Packets     packets.Provider
	Ledger      *scoring.Ledger
	Directory   identity.Directory
	Broadcaster Broadcaster
	Clock       clockwork.Clock
	Arbiter     ArbiterConfig
}

// Service routes commands to rooms.
type Service struct {
	rooms       *RoomRegistry
	rules       *rules.Registry
	packets     packets.Provider
	ledger      *scoring.Ledger
	directory   identity.Directory
	broadcaster Broadcaster
	clock       clockwork.Clock
	arbiter     ArbiterConfig
}

func NewService(cfg Config) *Service {
	s := &Service{
		rooms:       NewRoomRegistry(),
		rules:       cfg.Rules,
		packets:     cfg.Packets,
		ledger:      cfg.Ledger,
		directory:   cfg.Directory,
		broadcaster: cfg.Broadcaster,
		clock:       cfg.Clock,
		arbiter:     cfg.Arbiter,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.broadcaster == nil {
		s.broadcaster = discard{}
	}
	if s.packets == nil {
		s.packets = packets.StaticProvider{}
	}
	if s.ledger == nil {
		var tables scoring.CategoryTable
		if cfg.Rules != nil {
			tables = cfg.Rules
		}
		s.ledger = scoring.NewLedger(tables, scoring.WithClock(s.clock))
	}
	return s
}

func (s *Service) Ledger() *scoring.Ledger { return s.ledger }

// CreateRoom validates the format and mode, loads the format's engine and the
// session's questions, and registers the room. Any rules problem is a
// ConfigurationError and no room is created.
func (s *Service) CreateRoom(ctx context.Context, cfg RoomConfig) (*Room, error) {
	format, err := models.ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, &rules.ConfigurationError{Format: cfg.Format, Reason: "room format", Err: err}
	}
	cfg.Format = format

	if strings.TrimSpace(string(cfg.Mode)) == "" {
		cfg.Mode = models.PlayModePlayerVsPlayer
	}
	mode, err := models.ParsePlayMode(string(cfg.Mode))
	if err != nil {
		return nil, &rules.ConfigurationError{Format: format, Reason: "room play mode", Err: err}
	}
	cfg.Mode = mode

	if s.rules == nil {
		return nil, &rules.ConfigurationError{Format: format, Reason: "no rules registry configured"}
	}
	engine, err := s.rules.Engine(format)
	if err != nil {
		return nil, err
	}

	if cfg.ID = strings.TrimSpace(cfg.ID); cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if _, err := s.rooms.Get(cfg.ID); err == nil {
		return nil, ErrRoomExists
	}

	questions, err := s.packets.Questions(ctx, format, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions for room %s: %w", cfg.ID, err)
	}

	room := newRoom(cfg, roomDeps{
		engine:      engine,
		questions:   questions,
		ledger:      s.ledger,
		directory:   s.directory,
		broadcaster: s.broadcaster,
		clock:       s.clock,
		arbiter:     s.arbiter,
	})
	if err := s.rooms.Add(room); err != nil {
		room.Close()
		return nil, err
	}

	log.Info().
		Str("room_id", cfg.ID).
		Str("format", string(format)).
		Str("mode", string(mode)).
		Int("questions", len(questions)).
		Msg("room created")
	return room, nil
}

func (s *Service) Room(id string) (*Room, error) { return s.rooms.Get(id) }

// RoomIDs lists the live rooms.
func (s *Service) RoomIDs() []string { return s.rooms.IDs() }

// CloseRoom stops and removes a room.
func (s *Service) CloseRoom(id string) error {
	room, err := s.rooms.Remove(id)
	if err != nil {
		return err
	}
	room.Close()
	log.Info().Str("room_id", id).Msg("room closed")
	return nil
}

// Close stops every room.
func (s *Service) Close() {
	for _, id := range s.rooms.IDs() {
		_ = s.CloseRoom(id)
	}
}

func (s *Service) Join(ctx context.Context, roomID, userID string, role models.Role, teamID string) (Participant, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return Participant{}, err
	}
	return room.Join(ctx, userID, role, teamID)
}

func (s *Service) Leave(roomID, userID string) error {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return err
	}
	return room.Leave(userID)
}

func (s *Service) StartQuestion(roomID, requestedBy string) (RevealState, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RevealState{}, err
	}
	return room.StartQuestion(requestedBy)
}

func (s *Service) Buzz(roomID, userID string) error {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return err
	}
	return room.Buzz(userID)
}

func (s *Service) ResolveAnswer(roomID string, a Answer) (Resolution, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return Resolution{}, err
	}
	return room.ResolveAnswer(a)
}

func (s *Service) AdvanceQuestion(roomID, requestedBy string) (RevealState, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RevealState{}, err
	}
	return room.AdvanceQuestion(requestedBy)
}

func (s *Service) RevealNextClue(roomID, requestedBy string) (RevealState, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RevealState{}, err
	}
	return room.RevealNextClue(requestedBy)
}

func (s *Service) StartTimer(roomID, requestedBy, event string) (TimerSnapshot, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return TimerSnapshot{}, err
	}
	return room.StartTimer(requestedBy, event)
}

func (s *Service) EndRound(roomID, requestedBy string) (RoundSummary, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RoundSummary{}, err
	}
	return room.EndRound(requestedBy)
}

func (s *Service) Snapshot(roomID string) (RoomState, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return RoomState{}, err
	}
	return room.Snapshot(), nil
}
