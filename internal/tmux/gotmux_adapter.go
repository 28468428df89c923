// Package tmux wraps the gotmux library for slot session management and
// live-session observation.
package tmux

import (
	"fmt"

	"github.com/GianlucaP106/gotmux/gotmux"
)

// GotmuxAdapter wraps gotmux for session lifecycle and listing.
type GotmuxAdapter struct {
	tmux *gotmux.Tmux
}

// NewGotmuxAdapter creates a new gotmux adapter.
func NewGotmuxAdapter() (*GotmuxAdapter, error) {
	t, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("failed to create tmux client: %w", err)
	}
	return &GotmuxAdapter{tmux: t}, nil
}

// ListSessionNames returns the names of all live tmux sessions. A server
// that is not running yields an empty list, not an error.
func (g *GotmuxAdapter) ListSessionNames() []string {
	sessions, err := g.tmux.ListSessions()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(sessions))
	for _, s := range sessions {
		names = append(names, s.Name)
	}
	return names
}

// HasSession reports whether a session with the given name exists.
func (g *GotmuxAdapter) HasSession(name string) bool {
	session, err := g.tmux.GetSessionByName(name)
	return err == nil && session != nil
}

// CreateSlotSession creates a detached session rooted in the slot
// directory, named after the slot.
func (g *GotmuxAdapter) CreateSlotSession(name, slotPath string) error {
	_, err := g.tmux.NewSession(&gotmux.SessionOptions{
		Name:           name,
		StartDirectory: slotPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", name, err)
	}
	return nil
}

// KillSession terminates a session by name. Killing an absent session is
// not an error.
func (g *GotmuxAdapter) KillSession(name string) error {
	session, err := g.tmux.GetSessionByName(name)
	if err != nil || session == nil {
		return nil
	}
	if err := session.Kill(); err != nil {
		return fmt.Errorf("failed to kill session %s: %w", name, err)
	}
	return nil
}
