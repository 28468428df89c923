package app

import (
	"os"
	"sort"
	"strings"

	"github.com/example/slot/internal/core/rewrite"
	"github.com/example/slot/internal/models"
)

// SlotStatus is one slot with its live annotations.
type SlotStatus struct {
	Key        string   `json:"key"`
	Project    string   `json:"project"`
	Identifier string   `json:"identifier"`
	Branch     string   `json:"branch"`
	Path       string   `json:"path"`
	CreatedAt  string   `json:"created_at"`
	Locked     bool     `json:"locked"`
	LockNote   string   `json:"lock_note,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Exists     bool     `json:"exists"`
	HasSession bool     `json:"has_session"`
	AgentPIDs  []string `json:"agent_pids,omitempty"`
	Containers []string `json:"containers,omitempty"`
}

// ProjectStatus is one project with its slots.
type ProjectStatus struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	BasePort int          `json:"base_port"`
	Group    string       `json:"group,omitempty"`
	Slots    []SlotStatus `json:"slots"`
}

// GroupStatus is one presentation group of projects.
type GroupStatus struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Order       int             `json:"order"`
	Projects    []ProjectStatus `json:"projects"`
}

// StatusTree is the full read surface consumed by the dashboard and the
// tool-exposure layer. Every field is derived from the registry plus one
// fresh live snapshot.
type StatusTree struct {
	Groups         []GroupStatus   `json:"groups"`
	ListeningPorts []ListeningPort `json:"listening_ports,omitempty"`
}

// StatusService assembles the status tree.
type StatusService struct {
	ports *PortService
	live  LiveState
}

// NewStatusService creates a new StatusService.
func NewStatusService(ports *PortService, live LiveState) *StatusService {
	return &StatusService{ports: ports, live: live}
}

// Tree builds the registry-derived tree with live annotations. Projects
// without a group land in a trailing unnamed group.
func (s *StatusService) Tree(reg *models.Registry) *StatusTree {
	containers := s.live.Containers()
	sessions := make(map[string]bool)
	for _, name := range s.live.SessionNames() {
		sessions[name] = true
	}
	procs := s.live.AgentProcesses()

	projects := make(map[string]*ProjectStatus, len(reg.Projects))
	for name, p := range reg.Projects {
		projects[name] = &ProjectStatus{
			Name: name, Path: p.Path, BasePort: p.BasePort, Group: p.Group,
		}
	}

	slotKeys := make([]string, 0, len(reg.Slots))
	for key := range reg.Slots {
		slotKeys = append(slotKeys, key)
	}
	sort.Strings(slotKeys)

	for _, key := range slotKeys {
		slot := reg.Slots[key]
		ps, ok := projects[slot.Project]
		if !ok {
			continue
		}
		project := reg.Projects[slot.Project]
		path := models.SlotPath(project.Path, slot.Project, slot.Identifier())

		status := SlotStatus{
			Key:        key,
			Project:    slot.Project,
			Identifier: slot.Identifier(),
			Branch:     slot.Branch,
			Path:       path,
			CreatedAt:  slot.CreatedAt,
			Locked:     slot.Locked,
			LockNote:   slot.LockNote,
			Tags:       slot.Tags,
			HasSession: sessions[key],
		}
		if _, err := os.Stat(path); err == nil {
			status.Exists = true
		}
		prefix := rewrite.ResourceName(key)
		for _, c := range containers {
			if strings.HasPrefix(c.Name, prefix) {
				status.Containers = append(status.Containers, c.Name)
			}
		}
		for _, p := range procs {
			if underAnyPath(p.Cwd, []string{path}) {
				status.AgentPIDs = append(status.AgentPIDs, p.PID)
			}
		}
		ps.Slots = append(ps.Slots, status)
	}

	return &StatusTree{
		Groups:         groupProjects(reg, projects),
		ListeningPorts: s.ports.ListeningPorts(),
	}
}

func groupProjects(reg *models.Registry, projects map[string]*ProjectStatus) []GroupStatus {
	byGroup := make(map[string][]ProjectStatus)
	for _, ps := range projects {
		byGroup[ps.Group] = append(byGroup[ps.Group], *ps)
	}
	for _, list := range byGroup {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}

	var groups []GroupStatus
	for name, members := range byGroup {
		g := GroupStatus{Name: name, Projects: members}
		if meta, ok := reg.Groups[name]; ok {
			g.DisplayName = meta.DisplayName
			g.Order = meta.Order
		} else if name != "" {
			g.DisplayName = TitleCase(name)
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		// Ungrouped projects sort last.
		if (groups[i].Name == "") != (groups[j].Name == "") {
			return groups[j].Name == ""
		}
		if groups[i].Order != groups[j].Order {
			return groups[i].Order < groups[j].Order
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}
