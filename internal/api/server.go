// Package api exposes the slot engine over HTTP so dashboards and other
// tooling can read status and drive the lifecycle without shelling out.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/example/slot/internal/app"
	"github.com/example/slot/internal/models"
)

var errUnknownAction = errors.New("unknown action")

// Lifecycle is the subset of slot operations the command endpoint
// drives. cwd is the registered project path; the server resolves it
// from the registry before calling.
type Lifecycle interface {
	Create(cwd, identifier string) (*app.CreateResult, error)
	Delete(cwd, identifier string, force bool) error
	SetLock(cwd, identifier string, locked bool, note string) (string, error)
}

// RegistryLoader reads the current registry state.
type RegistryLoader interface {
	Load() (*models.Registry, error)
}

// StatusSource renders the annotated status tree.
type StatusSource interface {
	Tree(reg *models.Registry) *app.StatusTree
}

// Server serves GET /status and POST /command.
type Server struct {
	store    RegistryLoader
	status   StatusSource
	slots    Lifecycle
	sessions app.SessionManager
}

// NewServer creates a new Server.
func NewServer(store RegistryLoader, status StatusSource, slots Lifecycle, sessions app.SessionManager) *Server {
	return &Server{store: store, status: status, slots: slots, sessions: sessions}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/command", s.handleCommand)
	return mux
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("slot api listening on %s", addr)
	return server.ListenAndServe()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reg, err := s.store.Load()
	if err != nil {
		log.WithError(err).Error("failed to load registry")
		http.Error(w, "registry error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status.Tree(reg)); err != nil {
		log.WithError(err).Error("failed to encode status")
	}
}

type commandRequest struct {
	Action     string `json:"action"`
	Project    string `json:"project"`
	Identifier string `json:"identifier"`
	Force      bool   `json:"force"`
	Note       string `json:"note"`
}

type commandResponse struct {
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCommandError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}
	req.Action = strings.TrimSpace(strings.ToLower(req.Action))

	log.WithFields(log.Fields{
		"action":     req.Action,
		"project":    req.Project,
		"identifier": req.Identifier,
	}).Info("command received")

	result, err := s.dispatch(req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errUnknownAction) {
			status = http.StatusBadRequest
		}
		log.WithError(err).WithField("action", req.Action).Warn("command failed")
		writeCommandError(w, status, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(commandResponse{OK: true, Result: result})
}

func (s *Server) dispatch(req commandRequest) (string, error) {
	cwd, err := s.projectPath(req.Project)
	if err != nil {
		return "", err
	}

	switch req.Action {
	case "create":
		res, err := s.slots.Create(cwd, req.Identifier)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("created %s at %s", res.Key, res.Path), nil
	case "delete":
		if err := s.slots.Delete(cwd, req.Identifier, req.Force); err != nil {
			return "", err
		}
		return "deleted", nil
	case "lock":
		key, err := s.slots.SetLock(cwd, req.Identifier, true, req.Note)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("locked %s", key), nil
	case "unlock":
		key, err := s.slots.SetLock(cwd, req.Identifier, false, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("unlocked %s", key), nil
	case "start":
		return s.startSession(req)
	default:
		return "", fmt.Errorf("%w: %s", errUnknownAction, req.Action)
	}
}

// startSession ensures a detached tmux session for the slot. Attaching
// is a terminal concern the API cannot do for the caller.
func (s *Server) startSession(req commandRequest) (string, error) {
	if s.sessions == nil {
		return "", fmt.Errorf("no tmux server available")
	}
	reg, err := s.store.Load()
	if err != nil {
		return "", err
	}
	key := models.SlotName(req.Project, req.Identifier)
	slot, ok := reg.Slots[key]
	if !ok {
		return "", fmt.Errorf("slot %s is not registered", key)
	}
	project, ok := reg.Projects[slot.Project]
	if !ok {
		return "", fmt.Errorf("project %s is not registered", slot.Project)
	}
	if s.sessions.HasSession(key) {
		return fmt.Sprintf("session %s already running", key), nil
	}
	path := models.SlotPath(project.Path, slot.Project, req.Identifier)
	if err := s.sessions.CreateSlotSession(key, path); err != nil {
		return "", err
	}
	return fmt.Sprintf("session %s started", key), nil
}

func (s *Server) projectPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("project is required")
	}
	reg, err := s.store.Load()
	if err != nil {
		return "", err
	}
	project, ok := reg.Projects[name]
	if !ok {
		return "", fmt.Errorf("project %s is not registered", name)
	}
	return project.Path, nil
}

func writeCommandError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(commandResponse{Error: err.Error()})
}
