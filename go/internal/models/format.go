package models

import (
	"fmt"
	"strings"
)

// Format defines the competition rules family a room plays under.
type Format string

const (
	FormatNAQT      Format = "NAQT"
	FormatOSSAA     Format = "OSSAA"
	FormatFroshmore Format = "FROSHMORE"
	FormatTrivia    Format = "TRIVIA"
)

// Formats returns every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatNAQT, FormatOSSAA, FormatFroshmore, FormatTrivia}
}

// ParseFormat normalizes a format name. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatNAQT, FormatOSSAA, FormatFroshmore, FormatTrivia:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// Pyramidal reports whether questions of this format reveal clues hardest-first.
func (f Format) Pyramidal() bool {
	return f != FormatTrivia
}

// PlayMode defines who competes against whom in a room.
type PlayMode string

const (
	PlayModePlayerVsPlayer PlayMode = "pvp"
	PlayModePlayerVsTeam   PlayMode = "pvteam"
	PlayModeTeamVsTeam     PlayMode = "teamvsteam"
)

// ParsePlayMode validates a play mode string.
func ParsePlayMode(s string) (PlayMode, error) {
	m := PlayMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PlayModePlayerVsPlayer, PlayModePlayerVsTeam, PlayModeTeamVsTeam:
		return m, nil
	}
	return "", fmt.Errorf("unsupported play mode %q", s)
}

// Role defines what a participant may do in a room.
type Role string

const (
	RolePlayer    Role = "player"
	RoleModerator Role = "moderator"
)

// ParseRole defaults to RolePlayer for anything that isn't a moderator.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleModerator)) {
		return RoleModerator
	}
	return RolePlayer
}
