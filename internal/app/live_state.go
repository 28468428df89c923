package app

import (
	"github.com/example/slot/internal/tmux"
)

// SystemLiveState reads the live snapshot from the real external world:
// container runtime, process table, and tmux server. Every call reads
// fresh; a stale snapshot is how port collisions and false-orphan
// reports happen.
type SystemLiveState struct {
	docker *DockerService
	procs  *ProcessService
	tmux   *tmux.GotmuxAdapter
}

// NewSystemLiveState creates a live-state reader. The tmux adapter may
// be nil when no tmux binary is available; sessions then read as empty.
func NewSystemLiveState(docker *DockerService, procs *ProcessService, t *tmux.GotmuxAdapter) *SystemLiveState {
	return &SystemLiveState{docker: docker, procs: procs, tmux: t}
}

// Containers snapshots running containers.
func (l *SystemLiveState) Containers() []Container {
	return l.docker.LiveContainers()
}

// SessionNames snapshots tmux session names.
func (l *SystemLiveState) SessionNames() []string {
	if l.tmux == nil {
		return nil
	}
	return l.tmux.ListSessionNames()
}

// AgentProcesses snapshots running agent processes.
func (l *SystemLiveState) AgentProcesses() []AgentProcess {
	return l.procs.AgentProcesses()
}
