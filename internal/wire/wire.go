// Package wire provides dependency injection for the slot CLI.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"

	"github.com/example/slot/internal/api"
	"github.com/example/slot/internal/app"
	"github.com/example/slot/internal/registry"
	"github.com/example/slot/internal/tmux"
)

var (
	store     *registry.Store
	git       *app.GitService
	scan      *app.ScanService
	ports     *app.PortService
	workspace *app.WorkspaceService
	docker    *app.DockerService
	procs     *app.ProcessService
	sessions  *tmux.GotmuxAdapter
	live      *app.SystemLiveState
	reconcile *app.ReconcileService
	status    *app.StatusService
	slots     *app.SlotService
	once      sync.Once
)

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	store, err = registry.NewDefaultStore()
	if err != nil {
		log.Fatalf("failed to locate registry: %v", err)
	}

	git = app.NewGitService()
	scan = app.NewScanService()
	ports = app.NewPortService()
	workspace = app.NewWorkspaceService(git, scan)
	docker = app.NewDockerService(scan)
	procs = app.NewProcessService()

	// No tmux server is not an error; sessions stays nil and session
	// features degrade to no-ops.
	sessions, _ = tmux.NewGotmuxAdapter()

	live = app.NewSystemLiveState(docker, procs, sessions)
	reconcile = app.NewReconcileService(git, live)
	status = app.NewStatusService(ports, live)
	slots = app.NewSlotService(store, git, scan, ports, workspace, docker, reconcile, sessionsOrNil(), nil)
}

func sessionsOrNil() app.SessionManager {
	if sessions == nil {
		return nil
	}
	return sessions
}

// Store returns the singleton registry store.
func Store() *registry.Store {
	once.Do(initServices)
	return store
}

// Git returns the singleton GitService.
func Git() *app.GitService {
	once.Do(initServices)
	return git
}

// Slots returns the singleton SlotService.
func Slots() *app.SlotService {
	once.Do(initServices)
	return slots
}

// Reconcile returns the singleton ReconcileService.
func Reconcile() *app.ReconcileService {
	once.Do(initServices)
	return reconcile
}

// Status returns the singleton StatusService.
func Status() *app.StatusService {
	once.Do(initServices)
	return status
}

// Sessions returns the tmux adapter, or nil when no server is running.
func Sessions() app.SessionManager {
	once.Do(initServices)
	return sessionsOrNil()
}

// Processes returns the singleton ProcessService.
func Processes() *app.ProcessService {
	once.Do(initServices)
	return procs
}

// APIServer builds the HTTP server over the singleton services.
func APIServer() *api.Server {
	once.Do(initServices)
	return api.NewServer(store, status, slots, sessionsOrNil())
}
