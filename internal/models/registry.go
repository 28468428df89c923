// Package models contains the domain types for the slot registry.
// Persistence lives in internal/registry.
package models

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
)

// Project is a registered source checkout. Projects are created by an
// explicit register operation and never auto-deleted.
type Project struct {
	BasePort int    `json:"base_port"`
	Path     string `json:"path"`
	Group    string `json:"group,omitempty"`

	// Extra holds fields written by newer versions of the tool. They are
	// carried through load/save untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// Slot is an isolated environment spawned from a project. A slot is
// identified either by a positive number or by a free-form name.
type Slot struct {
	Project   string   `json:"project"`
	Number    int      `json:"number,omitempty"`
	Name      string   `json:"name,omitempty"`
	Branch    string   `json:"branch"`
	CreatedAt string   `json:"created_at"`
	Locked    bool     `json:"locked,omitempty"`
	LockNote  string   `json:"lock_note,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Group is a named bucket of projects, used only for presentation.
type Group struct {
	DisplayName string `json:"display_name"`
	Order       int    `json:"order"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Registry is the persisted state: three maps plus any top-level fields
// this version of the tool does not know about.
type Registry struct {
	Groups   map[string]Group
	Projects map[string]Project
	Slots    map[string]Slot

	Extra map[string]json.RawMessage
}

// NewRegistry returns an empty registry with all maps initialized.
func NewRegistry() *Registry {
	return &Registry{
		Groups:   make(map[string]Group),
		Projects: make(map[string]Project),
		Slots:    make(map[string]Slot),
	}
}

// Identifier returns the slot's numeric or named identity as a string.
func (s Slot) Identifier() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.Itoa(s.Number)
}

// SlotName returns the composite registry key for a project + identifier.
func SlotName(project, identifier string) string {
	return project + "-" + identifier
}

// SlotPath returns the on-disk path invariant:
// <parent-of-project-path>/<project>-<identifier>.
func SlotPath(projectPath, project, identifier string) string {
	return filepath.Join(filepath.Dir(projectPath), SlotName(project, identifier))
}

// unmarshalWithExtra decodes data into v (a struct) and returns every
// top-level key not listed in known.
func unmarshalWithExtra(data []byte, v interface{}, known map[string]bool) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for k, val := range raw {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = val
	}
	return extra, nil
}

// marshalWithExtra encodes v (a struct) and merges extra fields back in.
// Known fields win on key collision.
func marshalWithExtra(v interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = val
		}
	}
	return json.Marshal(merged)
}

var projectKnown = map[string]bool{"base_port": true, "path": true, "group": true}

func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	extra, err := unmarshalWithExtra(data, (*plain)(p), projectKnown)
	if err != nil {
		return fmt.Errorf("failed to parse project: %w", err)
	}
	p.Extra = extra
	return nil
}

func (p Project) MarshalJSON() ([]byte, error) {
	type plain Project
	return marshalWithExtra(plain(p), p.Extra)
}

var slotKnown = map[string]bool{
	"project": true, "number": true, "name": true, "branch": true,
	"created_at": true, "locked": true, "lock_note": true, "tags": true,
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	type plain Slot
	extra, err := unmarshalWithExtra(data, (*plain)(s), slotKnown)
	if err != nil {
		return fmt.Errorf("failed to parse slot: %w", err)
	}
	s.Extra = extra
	return nil
}

func (s Slot) MarshalJSON() ([]byte, error) {
	type plain Slot
	return marshalWithExtra(plain(s), s.Extra)
}

var groupKnown = map[string]bool{"display_name": true, "order": true}

func (g *Group) UnmarshalJSON(data []byte) error {
	type plain Group
	extra, err := unmarshalWithExtra(data, (*plain)(g), groupKnown)
	if err != nil {
		return fmt.Errorf("failed to parse group: %w", err)
	}
	g.Extra = extra
	return nil
}

func (g Group) MarshalJSON() ([]byte, error) {
	type plain Group
	return marshalWithExtra(plain(g), g.Extra)
}

type registryDoc struct {
	Groups   map[string]Group   `json:"groups,omitempty"`
	Projects map[string]Project `json:"projects"`
	Slots    map[string]Slot    `json:"slots"`
}

var registryKnown = map[string]bool{"groups": true, "projects": true, "slots": true}

func (r *Registry) UnmarshalJSON(data []byte) error {
	var doc registryDoc
	extra, err := unmarshalWithExtra(data, &doc, registryKnown)
	if err != nil {
		return fmt.Errorf("failed to parse registry: %w", err)
	}
	r.Groups = doc.Groups
	r.Projects = doc.Projects
	r.Slots = doc.Slots
	r.Extra = extra
	if r.Groups == nil {
		r.Groups = make(map[string]Group)
	}
	if r.Projects == nil {
		r.Projects = make(map[string]Project)
	}
	if r.Slots == nil {
		r.Slots = make(map[string]Slot)
	}
	return nil
}

func (r Registry) MarshalJSON() ([]byte, error) {
	doc := registryDoc{Groups: r.Groups, Projects: r.Projects, Slots: r.Slots}
	if len(doc.Groups) == 0 {
		doc.Groups = nil
	}
	return marshalWithExtra(doc, r.Extra)
}
