package app

import (
	"testing"

	"github.com/example/slot/internal/models"
)

func TestStatusTreeAnnotations(t *testing.T) {
	reg, _, slotPath := testRegistry(t)

	live := &fakeLive{
		containers: []Container{{Name: "app-1-db", Status: "Up 2 hours"}},
		sessions:   []string{"app-1"},
		procs:      []AgentProcess{{PID: "42", Cwd: slotPath}},
	}
	svc := NewStatusService(NewPortService(), live)

	tree := svc.Tree(reg)

	if len(tree.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(tree.Groups))
	}
	projects := tree.Groups[0].Projects
	if len(projects) != 1 || projects[0].Name != "app" {
		t.Fatalf("projects = %+v", projects)
	}
	slots := projects[0].Slots
	if len(slots) != 1 {
		t.Fatalf("slots = %+v", slots)
	}
	slot := slots[0]
	if !slot.Exists {
		t.Error("slot directory exists but Exists is false")
	}
	if !slot.HasSession {
		t.Error("session app-1 is live but HasSession is false")
	}
	if len(slot.AgentPIDs) != 1 || slot.AgentPIDs[0] != "42" {
		t.Errorf("agent pids = %v, want [42]", slot.AgentPIDs)
	}
	if len(slot.Containers) != 1 || slot.Containers[0] != "app-1-db" {
		t.Errorf("containers = %v, want [app-1-db]", slot.Containers)
	}
}

func TestStatusTreeGroupOrdering(t *testing.T) {
	reg := models.NewRegistry()
	reg.Projects["a"] = models.Project{Path: "/src/a", Group: "zeta"}
	reg.Projects["b"] = models.Project{Path: "/src/b", Group: "alpha"}
	reg.Projects["c"] = models.Project{Path: "/src/c"} // ungrouped
	reg.Groups["zeta"] = models.Group{DisplayName: "Zeta", Order: 1}
	reg.Groups["alpha"] = models.Group{DisplayName: "Alpha", Order: 2}

	svc := NewStatusService(NewPortService(), &fakeLive{})
	tree := svc.Tree(reg)

	if len(tree.Groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(tree.Groups))
	}
	if tree.Groups[0].Name != "zeta" || tree.Groups[1].Name != "alpha" {
		t.Errorf("explicit order not respected: %s, %s", tree.Groups[0].Name, tree.Groups[1].Name)
	}
	if tree.Groups[2].Name != "" {
		t.Errorf("ungrouped projects should sort last, got %q", tree.Groups[2].Name)
	}
}
