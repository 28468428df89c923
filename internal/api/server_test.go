package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/slot/internal/app"
	"github.com/example/slot/internal/models"
)

type fakeStore struct {
	reg *models.Registry
}

func (f *fakeStore) Load() (*models.Registry, error) {
	return f.reg, nil
}

type fakeStatus struct{}

func (fakeStatus) Tree(reg *models.Registry) *app.StatusTree {
	tree := &app.StatusTree{}
	for name := range reg.Projects {
		tree.Groups = append(tree.Groups, app.GroupStatus{
			Projects: []app.ProjectStatus{{Name: name}},
		})
	}
	return tree
}

type fakeLifecycle struct {
	created []string
	deleted []string
	locked  map[string]bool
	fail    bool
}

func (f *fakeLifecycle) Create(cwd, identifier string) (*app.CreateResult, error) {
	if f.fail {
		return nil, fmt.Errorf("worktree add failed")
	}
	f.created = append(f.created, cwd+":"+identifier)
	return &app.CreateResult{Key: "app-" + identifier, Path: cwd + "-" + identifier}, nil
}

func (f *fakeLifecycle) Delete(cwd, identifier string, force bool) error {
	if f.fail {
		return fmt.Errorf("slot is locked")
	}
	f.deleted = append(f.deleted, identifier)
	return nil
}

func (f *fakeLifecycle) SetLock(cwd, identifier string, locked bool, note string) (string, error) {
	if f.locked == nil {
		f.locked = make(map[string]bool)
	}
	f.locked[identifier] = locked
	return "app-" + identifier, nil
}

type fakeSessions struct {
	existing map[string]bool
	created  []string
}

func (f *fakeSessions) HasSession(name string) bool { return f.existing[name] }

func (f *fakeSessions) CreateSlotSession(name, slotPath string) error {
	f.created = append(f.created, name)
	return nil
}

func (f *fakeSessions) KillSession(name string) error { return nil }

var _ app.SessionManager = (*fakeSessions)(nil)

func testServer(t *testing.T) (*Server, *fakeLifecycle, *fakeSessions) {
	t.Helper()
	reg := models.NewRegistry()
	reg.Projects["app"] = models.Project{BasePort: 3000, Path: "/tmp/dev/app"}
	reg.Slots["app-3"] = models.Slot{Project: "app", Number: 3, Branch: "slot/3"}
	lifecycle := &fakeLifecycle{}
	sessions := &fakeSessions{existing: map[string]bool{}}
	return NewServer(&fakeStore{reg: reg}, fakeStatus{}, lifecycle, sessions), lifecycle, sessions
}

func postCommand(t *testing.T, srv *Server, body string) (*httptest.ResponseRecorder, commandResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tree app.StatusTree
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(tree.Groups) != 1 || len(tree.Groups[0].Projects) != 1 {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	if got := tree.Groups[0].Projects[0].Name; got != "app" {
		t.Errorf("expected project app, got %s", got)
	}
}

func TestStatusRejectsPost(t *testing.T) {
	srv, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCommandCreate(t *testing.T) {
	srv, lifecycle, _ := testServer(t)
	rec, resp := postCommand(t, srv, `{"action":"create","project":"app","identifier":"4"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.OK {
		t.Fatalf("expected ok response, got %+v", resp)
	}
	if len(lifecycle.created) != 1 || lifecycle.created[0] != "/tmp/dev/app:4" {
		t.Errorf("unexpected create calls: %v", lifecycle.created)
	}
}

func TestCommandUnknownProject(t *testing.T) {
	srv, lifecycle, _ := testServer(t)
	rec, resp := postCommand(t, srv, `{"action":"create","project":"ghost","identifier":"1"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(resp.Error, "not registered") {
		t.Errorf("unexpected error: %q", resp.Error)
	}
	if len(lifecycle.created) != 0 {
		t.Errorf("create should not have been called")
	}
}

func TestCommandUnknownAction(t *testing.T) {
	srv, _, _ := testServer(t)
	rec, resp := postCommand(t, srv, `{"action":"explode","project":"app"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(resp.Error, "unknown action") {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}

func TestCommandLifecycleError(t *testing.T) {
	srv, lifecycle, _ := testServer(t)
	lifecycle.fail = true
	rec, resp := postCommand(t, srv, `{"action":"delete","project":"app","identifier":"3"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp.OK || resp.Error == "" {
		t.Errorf("expected error response, got %+v", resp)
	}
}

func TestCommandLockUnlock(t *testing.T) {
	srv, lifecycle, _ := testServer(t)
	if _, resp := postCommand(t, srv, `{"action":"lock","project":"app","identifier":"3","note":"demo"}`); !resp.OK {
		t.Fatalf("lock failed: %+v", resp)
	}
	if !lifecycle.locked["3"] {
		t.Errorf("expected slot 3 locked")
	}
	if _, resp := postCommand(t, srv, `{"action":"unlock","project":"app","identifier":"3"}`); !resp.OK {
		t.Fatalf("unlock failed: %+v", resp)
	}
	if lifecycle.locked["3"] {
		t.Errorf("expected slot 3 unlocked")
	}
}

func TestCommandStart(t *testing.T) {
	srv, _, sessions := testServer(t)
	_, resp := postCommand(t, srv, `{"action":"start","project":"app","identifier":"3"}`)
	if !resp.OK {
		t.Fatalf("start failed: %+v", resp)
	}
	if len(sessions.created) != 1 || sessions.created[0] != "app-3" {
		t.Errorf("unexpected sessions: %v", sessions.created)
	}

	sessions.existing["app-3"] = true
	_, resp = postCommand(t, srv, `{"action":"start","project":"app","identifier":"3"}`)
	if !resp.OK || !strings.Contains(resp.Result, "already running") {
		t.Errorf("expected already-running result, got %+v", resp)
	}
	if len(sessions.created) != 1 {
		t.Errorf("session should not be recreated: %v", sessions.created)
	}
}
