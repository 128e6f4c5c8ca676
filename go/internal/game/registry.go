package game

import (
	"sort"
	"sync"
)

// RoomRegistry maps room ids to rooms. Its lock guards only the map; each
// room serializes its own commands.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*Room)}
}

func (g *RoomRegistry) Add(r *Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rooms[r.ID()]; exists {
		return ErrRoomExists
	}
	g.rooms[r.ID()] = r
	return nil
}

func (g *RoomRegistry) Get(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove deletes and returns the room.
func (g *RoomRegistry) Remove(id string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	delete(g.rooms, id)
	return r, nil
}

// IDs lists room ids in sorted order.
func (g *RoomRegistry) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *RoomRegistry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
