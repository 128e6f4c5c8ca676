package identity

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Directory resolves team membership for a participant.
type Directory interface {
	TeamOf(ctx context.Context, userID string) (teamID string, ok bool, err error)
}

// Roster is an in-memory Directory. A user belongs to at most one team.
type Roster struct {
	mu     sync.RWMutex
	teamOf map[string]string
}

type rosterFile struct {
	Teams map[string][]string `yaml:"teams"`
}

// NewRoster builds a roster from team -> members.
func NewRoster(teams map[string][]string) (*Roster, error) {
	r := &Roster{teamOf: make(map[string]string)}
	for team, members := range teams {
		for _, m := range members {
			if err := r.Assign(m, team); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// LoadRoster reads a YAML roster of the form `teams: {red: [alice, bob]}`.
// An empty path returns an empty roster.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return NewRoster(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return NewRoster(f.Teams)
}

// Assign places a user on a team. Moving a user to a different team is an
// error; reassigning to the same team is a no-op.
func (r *Roster) Assign(userID, teamID string) error {
	userID, teamID = strings.TrimSpace(userID), strings.TrimSpace(teamID)
	if userID == "" || teamID == "" {
		return fmt.Errorf("user and team are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.teamOf[userID]; ok && current != teamID {
		return fmt.Errorf("user %q already on team %q", userID, current)
	}
	r.teamOf[userID] = teamID
	return nil
}

func (r *Roster) TeamOf(_ context.Context, userID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	team, ok := r.teamOf[userID]
	return team, ok, nil
}

// Members lists a team's users in sorted order.
func (r *Roster) Members(teamID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for u, t := range r.teamOf {
		if t == teamID {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
