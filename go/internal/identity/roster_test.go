package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	doc := "teams:\n  red: [alice, bob]\n  blue:\n    - carol\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRoster(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	tests := []struct {
		user string
		team string
		ok   bool
	}{
		{"alice", "red", true},
		{"bob", "red", true},
		{"carol", "blue", true},
		{"dave", "", false},
	}
	for _, tt := range tests {
		team, ok, err := r.TeamOf(ctx, tt.user)
		if err != nil || team != tt.team || ok != tt.ok {
			t.Errorf("TeamOf(%s) = %q, %v, %v; want %q, %v", tt.user, team, ok, err, tt.team, tt.ok)
		}
	}
	if got := r.Members("red"); len(got) != 2 || got[0] != "alice" {
		t.Errorf("Members(red) = %v", got)
	}
}

func TestLoadRosterErrors(t *testing.T) {
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}

	path := filepath.Join(t.TempDir(), "dup.yaml")
	if err := os.WriteFile(path, []byte("teams:\n  red: [alice]\n  blue: [alice]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRoster(path); err == nil {
		t.Error("expected error for a user on two teams")
	}
}

func TestAssign(t *testing.T) {
	r, err := LoadRoster("")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Assign("erin", "green"); err != nil {
		t.Fatal(err)
	}
	if err := r.Assign("erin", "green"); err != nil {
		t.Errorf("same-team reassign should be a no-op: %v", err)
	}
	if err := r.Assign("erin", "gold"); err == nil {
		t.Error("expected error moving user to another team")
	}
	if err := r.Assign(" ", "gold"); err == nil {
		t.Error("expected error for blank user")
	}
}
