package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
)

// ErrInvalidState is matched by every rejected state transition.
var ErrInvalidState = errors.New("invalid state")

type stateError struct{ msg string }

func (e *stateError) Error() string        { return e.msg }
func (e *stateError) Is(target error) bool { return target == ErrInvalidState }

func invalidState(msg string) error { return &stateError{msg: msg} }

var (
	ErrLockedOut           = invalidState("buzzing is locked out")
	ErrAlreadyBuzzed       = invalidState("another participant already buzzed")
	ErrNoActiveBuzz        = invalidState("no active buzz")
	ErrNotBuzzedSubject    = invalidState("participant does not hold the buzz")
	ErrAllCluesRevealed    = invalidState("all clues revealed")
	ErrNoQuestionsLoaded   = invalidState("no questions loaded")
	ErrNotPyramidal        = invalidState("question is not pyramidal")
	ErrNoActiveQuestion    = invalidState("no active question")
	ErrTeamFull            = invalidState("team is full")
	ErrNoTeam              = invalidState("team play requires a team")
	ErrNotJoined           = invalidState("participant has not joined the room")
	ErrMissingSubject      = invalidState("participant id is required")
	ErrModeratorCannotBuzz = invalidState("moderator cannot buzz")
	ErrNoTimedRound        = invalidState("format has no timed lightning round")
)

var (
	ErrNotAuthorized    = errors.New("moderator role required")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedCommand = errors.New("malformed command data")
)

// LockedOutError carries the time left in the lockout window.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("buzzing is locked out for %.1fs", e.Remaining.Seconds())
}

func (e *LockedOutError) Is(target error) bool {
	return target == ErrLockedOut || target == ErrInvalidState
}

// ErrorCode maps an error to the stable code sent to clients.
func ErrorCode(err error) string {
	codes := []struct {
		target error
		code   string
	}{
		{ErrLockedOut, "locked_out"},
		{ErrAlreadyBuzzed, "already_buzzed"},
		{ErrNoActiveBuzz, "no_active_buzz"},
		{ErrNotBuzzedSubject, "not_buzzed_subject"},
		{ErrAllCluesRevealed, "all_clues_revealed"},
		{ErrNoQuestionsLoaded, "no_questions_loaded"},
		{ErrNotPyramidal, "not_pyramidal"},
		{ErrNoActiveQuestion, "no_active_question"},
		{ErrTeamFull, "team_full"},
		{ErrNoTeam, "no_team"},
		{ErrNotJoined, "not_joined"},
		{ErrMissingSubject, "missing_subject"},
		{ErrModeratorCannotBuzz, "moderator_cannot_buzz"},
		{ErrNoTimedRound, "no_timed_round"},
		{ErrInvalidState, "invalid_state"},
		{ErrNotAuthorized, "not_authorized"},
		{ErrRoomNotFound, "room_not_found"},
		{ErrRoomExists, "room_exists"},
		{ErrUnknownCommand, "unknown_command"},
		{ErrMalformedCommand, "malformed_command"},
		{scoring.ErrUnknownCategory, "unknown_category"},
		{rules.ErrConfiguration, "configuration"},
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return "internal"
}
