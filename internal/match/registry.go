package match

import (
	"context"
	"sync"
)

// DisconnectHandler is told when a connection goes away.
type DisconnectHandler interface {
	ConnectionClosed(ctx context.Context, conn, player string)
}

type connEntry struct {
	player  string
	matchID string
}

// Registry tracks which player and live match each connection holds.
type Registry struct {
	mu       sync.Mutex
	conns    map[string]*connEntry
	handlers []DisconnectHandler
}

func NewRegistry(handlers ...DisconnectHandler) *Registry {
	return &Registry{
		conns:    map[string]*connEntry{},
		handlers: handlers,
	}
}

func (r *Registry) Connect(conn string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn]; !ok {
		r.conns[conn] = &connEntry{}
	}
}

func (r *Registry) Connected(conn string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[conn]
	return ok
}

// BindPlayer associates a player id with the connection. A connection that
// holds a live match cannot switch players.
func (r *Registry) BindPlayer(conn, player string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok {
		e = &connEntry{}
		r.conns[conn] = e
	}
	if e.player != "" && e.player != player && e.matchID != "" {
		return ErrAlreadyActive
	}
	e.player = player
	return nil
}

func (r *Registry) Player(conn string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok || e.player == "" {
		return "", false
	}
	return e.player, true
}

func (r *Registry) MatchOf(conn string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[conn]; ok {
		return e.matchID
	}
	return ""
}

func (r *Registry) BindMatch(conn, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[conn]; ok {
		e.matchID = matchID
	}
}

// UnbindMatch clears the association only if it still points at matchID.
func (r *Registry) UnbindMatch(conn, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[conn]; ok && e.matchID == matchID {
		e.matchID = ""
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Disconnect forgets the connection and then notifies every handler in
// registration order. Unknown connections are ignored.
func (r *Registry) Disconnect(ctx context.Context, conn string) {
	r.mu.Lock()
	e, ok := r.conns[conn]
	delete(r.conns, conn)
	r.mu.Unlock()
	if !ok {
		return
	}
	for _, h := range r.handlers {
		h.ConnectionClosed(ctx, conn, e.player)
	}
}
