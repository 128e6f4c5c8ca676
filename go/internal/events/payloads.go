package events

import "github.com/mcdev12/quizbowl/go/internal/models"

// Notification payload types shared between the game and gateway packages

// NotificationType names a message pushed to room participants.
type NotificationType string

const (
	QuestionStarted  NotificationType = "questionStarted"
	RevealState      NotificationType = "revealState"
	BuzzLocked       NotificationType = "buzzLocked"
	LockoutActive    NotificationType = "lockoutActive"
	ScoreUpdate      NotificationType = "scoreUpdate"
	TimerTick        NotificationType = "timerTick"
	TimerEnd         NotificationType = "timerEnd"
	TiebreakerNotice NotificationType = "tiebreakerNotice"
	PlayerList       NotificationType = "playerList"
	RoundEnded       NotificationType = "roundEnded"
	Error            NotificationType = "error"
)

// Notification is a typed message for a room. Target is set when only one
// participant should receive it.
type Notification struct {
	Type   NotificationType `json:"type"`
	RoomID string           `json:"room_id"`
	Target string           `json:"-"`
	Data   any              `json:"data"`
}

// QuestionStartedPayload is the payload for a QuestionStarted notification
type QuestionStartedPayload struct {
	QuestionID   string `json:"question_id,omitempty"`
	QuestionText string `json:"question_text"`
	Index        int    `json:"index"`
	Total        int    `json:"total"`
}

// RevealStatePayload is the payload for a RevealState notification
type RevealStatePayload struct {
	RevealedCount int    `json:"revealed_count"`
	TotalClues    int    `json:"total_clues"`
	Text          string `json:"text"`
}

// BuzzLockedPayload is the payload for a BuzzLocked notification
type BuzzLockedPayload struct {
	Subject string `json:"subject"`
}

// LockoutActivePayload is sent only to the participant who buzzed while locked out
type LockoutActivePayload struct {
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// ScoreUpdatePayload is the payload for a ScoreUpdate notification
type ScoreUpdatePayload struct {
	Subject     string             `json:"subject"`
	SubjectKind models.SubjectKind `json:"subject_kind"`
	PointsDelta int                `json:"points_delta"`
	Result      string             `json:"result"`
	Total       int                `json:"total"`
	Power       bool               `json:"power,omitempty"`
}

// TimerTickPayload is the payload for a TimerTick notification
type TimerTickPayload struct {
	Event            string `json:"event"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// TimerEndPayload is the payload for a TimerEnd notification
type TimerEndPayload struct {
	Event string `json:"event"`
}

// TiebreakerNoticePayload is the payload for a TiebreakerNotice notification
type TiebreakerNoticePayload struct {
	Message string `json:"message"`
	Round   int    `json:"round"`
}

// PlayerInfo describes one joined participant
type PlayerInfo struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id,omitempty"`
}

// PlayerListPayload is the payload for a PlayerList notification
type PlayerListPayload struct {
	Players   []PlayerInfo `json:"players"`
	Moderator string       `json:"moderator,omitempty"`
}

// RoundEndedPayload is the payload for a RoundEnded notification
type RoundEndedPayload struct {
	Round     int  `json:"round"`
	NextRound int  `json:"next_round"`
	Tied      bool `json:"tied"`
}

// ErrorPayload is sent to the connection whose command failed
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
