package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/slot/internal/core/rewrite"
	"github.com/example/slot/internal/core/safety"
	"github.com/example/slot/internal/models"
)

// GitOps is the subset of git operations reconciliation needs. It is an
// interface so reports can be tested against fakes instead of real
// repositories.
type GitOps interface {
	IsWorktree(path string) bool
	WorktreeMainRepo(worktreePath string) string
	GetCurrentBranch(repoPath string) (string, error)
	MergeBase(repoPath, a, b string) (string, error)
	AheadBehind(repoPath, base, branch string) (ahead, behind int, err error)
	IsDirty(repoPath string) (bool, error)
	UnpushedCount(repoPath string) int
	UnmergedCount(repoPath, baseBranch string) (int, error)
}

// LiveState supplies the point-in-time external snapshot. It is always
// read fresh before a decision; nothing here is cached or persisted.
type LiveState interface {
	Containers() []Container
	SessionNames() []string
	AgentProcesses() []AgentProcess
}

// ReconcileService compares the registry against live state.
type ReconcileService struct {
	git  GitOps
	live LiveState
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(git GitOps, live LiveState) *ReconcileService {
	return &ReconcileService{git: git, live: live}
}

// VerifyReport is the outcome of verifying one slot. Checks lists every
// verification performed so the user sees what was checked, not just
// what failed.
type VerifyReport struct {
	Checks   []string
	Warnings []string
	Errors   []string
}

func (r *VerifyReport) check(format string, args ...interface{}) {
	r.Checks = append(r.Checks, fmt.Sprintf(format, args...))
}

func (r *VerifyReport) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *VerifyReport) fail(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// VerifySlot confirms a slot's working copy still corresponds 1:1 with
// its registry entry and its project. Mismatched registry fields are
// errors; being behind the project branch is only a warning.
func (s *ReconcileService) VerifySlot(reg *models.Registry, slotKey string) *VerifyReport {
	report := &VerifyReport{}

	slot, ok := reg.Slots[slotKey]
	if !ok {
		report.fail("slot %s not in registry", slotKey)
		return report
	}
	project, ok := reg.Projects[slot.Project]
	if !ok {
		report.fail("project %s not in registry", slot.Project)
		return report
	}
	slotPath := models.SlotPath(project.Path, slot.Project, slot.Identifier())

	if _, err := os.Stat(slotPath); err != nil {
		report.fail("directory %s missing", slotPath)
		return report
	}
	report.check("directory exists: %s", slotPath)

	if !s.git.IsWorktree(slotPath) {
		report.fail("%s is not a linked worktree", slotPath)
		return report
	}
	report.check("is a linked worktree")

	mainRepo := s.git.WorktreeMainRepo(slotPath)
	if mainRepo != project.Path {
		report.fail("worktree links to %s, registry says project is at %s", mainRepo, project.Path)
	} else {
		report.check("worktree links back to project checkout")
	}

	branch, err := s.git.GetCurrentBranch(slotPath)
	if err != nil {
		report.fail("could not read branch: %v", err)
		return report
	}
	if branch != slot.Branch {
		report.fail("branch on disk is %s, registry says %s", branch, slot.Branch)
	} else {
		report.check("branch matches registry: %s", branch)
	}

	projectBranch, err := s.git.GetCurrentBranch(project.Path)
	if err != nil {
		report.fail("could not read project branch: %v", err)
		return report
	}
	if _, err := s.git.MergeBase(slotPath, projectBranch, branch); err != nil {
		report.fail("no common ancestor with project branch %s", projectBranch)
	} else {
		report.check("shares history with project branch %s", projectBranch)
	}

	ahead, behind, err := s.git.AheadBehind(slotPath, projectBranch, branch)
	if err == nil {
		if ahead < 0 || behind < 0 {
			report.fail("negative ahead/behind counts: %d/%d", ahead, behind)
		} else {
			report.check("ahead %d / behind %d of %s", ahead, behind, projectBranch)
			if behind > 0 {
				report.warn("behind %s by %d commits, needs sync", projectBranch, behind)
			}
		}
	}

	return report
}

// OrphanReport lists, per resource class, live things the registry
// cannot explain plus registry entries whose backing directory vanished.
// Classification is presentation-only; removal is a separate explicit
// action.
type OrphanReport struct {
	Containers      []string
	Processes       []AgentProcess
	Sessions        []string
	RegistryEntries []string
}

// Empty reports whether nothing is orphaned.
func (r *OrphanReport) Empty() bool {
	return len(r.Containers) == 0 && len(r.Processes) == 0 &&
		len(r.Sessions) == 0 && len(r.RegistryEntries) == 0
}

// Orphans computes the set difference between live state and the
// registry, independently for each resource class.
func (s *ReconcileService) Orphans(reg *models.Registry) *OrphanReport {
	report := &OrphanReport{}

	// Name prefixes the registry can explain.
	var prefixes []string
	for name := range reg.Projects {
		prefixes = append(prefixes, rewrite.ResourceName(name))
	}
	for key := range reg.Slots {
		prefixes = append(prefixes, rewrite.ResourceName(key))
	}

	// Paths the registry can explain.
	var paths []string
	for _, p := range reg.Projects {
		paths = append(paths, p.Path)
	}
	for key, slot := range reg.Slots {
		if p, ok := reg.Projects[slot.Project]; ok {
			paths = append(paths, models.SlotPath(p.Path, slot.Project, slot.Identifier()))
		} else {
			// Slot pointing at an unregistered project is itself drift.
			report.RegistryEntries = append(report.RegistryEntries, key)
		}
	}

	for _, c := range s.live.Containers() {
		if !matchesAnyPrefix(c.Name, prefixes) {
			report.Containers = append(report.Containers, c.Name)
		}
	}
	for _, p := range s.live.AgentProcesses() {
		if !underAnyPath(p.Cwd, paths) {
			report.Processes = append(report.Processes, p)
		}
	}
	for _, name := range s.live.SessionNames() {
		if !sessionExplained(name, reg) {
			report.Sessions = append(report.Sessions, name)
		}
	}
	for key, slot := range reg.Slots {
		project, ok := reg.Projects[slot.Project]
		if !ok {
			continue // already reported above
		}
		dir := models.SlotPath(project.Path, slot.Project, slot.Identifier())
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			report.RegistryEntries = append(report.RegistryEntries, key)
		}
	}
	return report
}

func matchesAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func underAnyPath(cwd string, paths []string) bool {
	for _, p := range paths {
		if cwd == p || strings.HasPrefix(cwd, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// sessionExplained reports whether a tmux session name corresponds to a
// registered slot or project. Sessions that do not even look like slot
// sessions are none of our business.
func sessionExplained(name string, reg *models.Registry) bool {
	looksLikeSlot := false
	for project := range reg.Projects {
		if name == project {
			return true
		}
		if strings.HasPrefix(name, project+"-") {
			looksLikeSlot = true
		}
	}
	if !looksLikeSlot {
		return true
	}
	_, registered := reg.Slots[name]
	return registered
}

// SafetyEntry is one working copy's deletion-safety classification.
type SafetyEntry struct {
	Path   string
	Name   string
	Branch string
	State  safety.State
	Detail string
}

// ClassifySlotDir computes the deletion-safety facts for one working
// copy against the project's current branch.
func (s *ReconcileService) ClassifySlotDir(path string, locked bool, projectBranch string) safety.Facts {
	facts := safety.Facts{Locked: locked}

	if dirty, err := s.git.IsDirty(path); err == nil && dirty {
		facts.Dirty = true
	}
	if n := s.git.UnpushedCount(path); n > 0 {
		// A branch with no upstream (n == -1) is not flagged here; the
		// unmerged check below decides whether its commits are already
		// reachable from the project branch.
		facts.Unpushed = true
	}
	if n, err := s.git.UnmergedCount(path, projectBranch); err == nil && n > 0 {
		facts.Unmerged = true
	}
	return facts
}

// ClassifyAll classifies every known working copy of a project other
// than the project checkout itself: registered slots first, then any
// sibling worktree directory matching the slot naming pattern.
func (s *ReconcileService) ClassifyAll(reg *models.Registry, projectName string) ([]SafetyEntry, error) {
	project, ok := reg.Projects[projectName]
	if !ok {
		return nil, fmt.Errorf("project %s not in registry", projectName)
	}
	projectBranch, err := s.git.GetCurrentBranch(project.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project branch: %w", err)
	}

	seen := make(map[string]bool)
	var entries []SafetyEntry

	classify := func(name, path string, locked bool) {
		if seen[path] {
			return
		}
		seen[path] = true
		if _, err := os.Stat(path); err != nil {
			return
		}
		branch, _ := s.git.GetCurrentBranch(path)
		facts := s.ClassifySlotDir(path, locked, projectBranch)
		state := safety.Classify(facts)
		entries = append(entries, SafetyEntry{
			Path:   path,
			Name:   name,
			Branch: branch,
			State:  state,
			Detail: factsDetail(facts),
		})
	}

	for key, slot := range reg.Slots {
		if slot.Project != projectName {
			continue
		}
		classify(key, models.SlotPath(project.Path, projectName, slot.Identifier()), slot.Locked)
	}

	// Sibling directories the registry does not know about.
	pattern := filepath.Join(filepath.Dir(project.Path), projectName+"-*")
	matches, _ := filepath.Glob(pattern)
	for _, path := range matches {
		if !s.git.IsWorktree(path) {
			continue
		}
		classify(filepath.Base(path), path, false)
	}
	return entries, nil
}

func factsDetail(f safety.Facts) string {
	var parts []string
	if f.Locked {
		parts = append(parts, "locked")
	}
	if f.Dirty {
		parts = append(parts, "uncommitted changes")
	}
	if f.Unpushed {
		parts = append(parts, "commits not on remote")
	}
	if f.Unmerged {
		parts = append(parts, "commits not merged")
	}
	if len(parts) == 0 {
		return "fully merged and pushed"
	}
	return strings.Join(parts, ", ")
}
