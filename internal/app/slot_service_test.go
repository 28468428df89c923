package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/example/slot/internal/core/discovery"
	"github.com/example/slot/internal/core/portalloc"
	"github.com/example/slot/internal/models"
)

func TestNextSlotNumber(t *testing.T) {
	parent := t.TempDir()
	projectPath := filepath.Join(parent, "app")
	for _, dir := range []string{"app", "app-1", "app-4", "app-experiment"} {
		if err := os.Mkdir(filepath.Join(parent, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	reg := models.NewRegistry()
	reg.Projects["app"] = models.Project{BasePort: 3000, Path: projectPath}
	reg.Slots["app-2"] = models.Slot{Project: "app", Number: 2}
	reg.Slots["other-9"] = models.Slot{Project: "other", Number: 9}

	s := &SlotService{}
	// Disk has app-4, registry has app-2; other project's numbers and
	// the named directory are ignored.
	if got := s.nextSlotNumber(reg, "app", projectPath); got != 5 {
		t.Errorf("expected next slot 5, got %d", got)
	}
}

func TestNextSlotNumberFreshProject(t *testing.T) {
	parent := t.TempDir()
	projectPath := filepath.Join(parent, "app")
	if err := os.Mkdir(projectPath, 0o755); err != nil {
		t.Fatal(err)
	}

	reg := models.NewRegistry()
	reg.Projects["app"] = models.Project{BasePort: 3000, Path: projectPath}

	s := &SlotService{}
	if got := s.nextSlotNumber(reg, "app", projectPath); got != 1 {
		t.Errorf("expected first slot 1, got %d", got)
	}
}

func TestInferIdentifier(t *testing.T) {
	tests := []struct {
		base    string
		project string
		want    string
	}{
		{"app-2", "app", "2"},
		{"app-experiment", "app", "experiment"},
		// A named slot ending in digits keeps its full name.
		{"app-exp-2", "app", "exp-2"},
		// Not prefixed by the project: fall back to a trailing number.
		{"widgets-3", "app", "3"},
		{"app", "app", ""},
		{"somewhere", "app", ""},
	}
	for _, tt := range tests {
		if got := inferIdentifier(tt.base, tt.project); got != tt.want {
			t.Errorf("inferIdentifier(%q, %q) = %q, want %q", tt.base, tt.project, got, tt.want)
		}
	}
}

func TestReallocFreeKeepsRunningSlotPorts(t *testing.T) {
	mainPorts := discovery.Ports{3000: "PORT", 5432: "DB_PORT"}
	// The slot is up: its config holds 3001/5433 and its containers are
	// listening on them, so a bare liveness probe reports them busy.
	slotPorts := discovery.Ports{3001: "PORT", 5433: "DB_PORT"}
	busy := map[int]bool{3001: true, 5433: true}
	isFree := func(port int) bool { return !busy[port] }

	result, err := portalloc.Allocate(mainPorts, 1, reallocFree(slotPorts, isFree))
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]int{3000: 3001, 5432: 5433}
	if !reflect.DeepEqual(result.PortMap, want) {
		t.Errorf("re-derived map = %v, want the slot's existing %v", result.PortMap, want)
	}
	for _, a := range result.Allocations {
		if a.Probes != 0 {
			t.Errorf("%s probed %d times, want direct hit on the existing port", a.Label, a.Probes)
		}
	}
}

func TestReallocFreeStillAvoidsForeignPorts(t *testing.T) {
	slotPorts := discovery.Ports{3001: "PORT"}
	busy := map[int]bool{3001: true, 5433: true}
	free := reallocFree(slotPorts, func(port int) bool { return !busy[port] })

	if !free(3001) {
		t.Error("the slot's own busy port must count as free")
	}
	if free(5433) {
		t.Error("a busy port the slot does not hold must stay busy")
	}
	if !free(8080) {
		t.Error("an idle port must stay free")
	}
}
