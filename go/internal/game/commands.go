package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

// CommandType names an inbound room command.
type CommandType string

const (
	CommandJoin            CommandType = "join"
	CommandLeave           CommandType = "leave"
	CommandStartQuestion   CommandType = "startQuestion"
	CommandBuzz            CommandType = "buzz"
	CommandResolveAnswer   CommandType = "resolveAnswer"
	CommandAdvanceQuestion CommandType = "advanceQuestion"
	CommandRevealNextClue  CommandType = "revealNextClue"
	CommandStartTimer      CommandType = "startTimer"
	CommandEndRound        CommandType = "endRound"
	CommandSnapshot        CommandType = "snapshot"
)

// Command is a transport-neutral request. Sender is the authenticated
// participant that issued it.
type Command struct {
	Type   CommandType     `json:"type"`
	RoomID string          `json:"room_id"`
	Sender string          `json:"-"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	Role   string `json:"role"`
	TeamID string `json:"team_id"`
}

type resolveData struct {
	Subject    string         `json:"subject"`
	Correct    bool           `json:"correct"`
	Power      bool           `json:"power"`
	Categories map[string]int `json:"categories"`
}

type timerData struct {
	Event string `json:"event"`
}

// Dispatch runs a command against the service and returns its result.
func (s *Service) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Type {
	case CommandJoin:
		var d joinData
		if err := decode(cmd.Data, &d); err != nil {
			return nil, err
		}
		return s.Join(ctx, cmd.RoomID, cmd.Sender, models.ParseRole(d.Role), d.TeamID)
	case CommandLeave:
		return nil, s.Leave(cmd.RoomID, cmd.Sender)
	case CommandStartQuestion:
		return s.StartQuestion(cmd.RoomID, cmd.Sender)
	case CommandBuzz:
		return nil, s.Buzz(cmd.RoomID, cmd.Sender)
	case CommandResolveAnswer:
		var d resolveData
		if err := decode(cmd.Data, &d); err != nil {
			return nil, err
		}
		return s.resolveFor(cmd, d)
	case CommandAdvanceQuestion:
		return s.AdvanceQuestion(cmd.RoomID, cmd.Sender)
	case CommandRevealNextClue:
		return s.RevealNextClue(cmd.RoomID, cmd.Sender)
	case CommandStartTimer:
		var d timerData
		if err := decode(cmd.Data, &d); err != nil {
			return nil, err
		}
		return s.StartTimer(cmd.RoomID, cmd.Sender, d.Event)
	case CommandEndRound:
		return s.EndRound(cmd.RoomID, cmd.Sender)
	case CommandSnapshot:
		return s.Snapshot(cmd.RoomID)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}

// resolveFor lets the moderator judge the buzzed participant; anyone else
// may only resolve their own buzz.
func (s *Service) resolveFor(cmd Command, d resolveData) (Resolution, error) {
	room, err := s.rooms.Get(cmd.RoomID)
	if err != nil {
		return Resolution{}, err
	}
	subject := cmd.Sender
	if d.Subject != "" && d.Subject != cmd.Sender {
		if room.Moderator() != cmd.Sender {
			return Resolution{}, ErrNotAuthorized
		}
		subject = d.Subject
	}

	var categories map[models.Category]int
	if len(d.Categories) > 0 {
		categories = make(map[models.Category]int, len(d.Categories))
		for name, v := range d.Categories {
			categories[models.Category(name)] = v
		}
	}
	return room.ResolveAnswer(Answer{Subject: subject, Correct: d.Correct, Power: d.Power, Categories: categories})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return nil
}
