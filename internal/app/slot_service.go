package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/slot/internal/core/discovery"
	"github.com/example/slot/internal/core/portalloc"
	"github.com/example/slot/internal/core/safety"
	"github.com/example/slot/internal/models"
	"github.com/example/slot/internal/registry"
)

// SessionManager is the subset of tmux operations the lifecycle needs.
// Nil-safe wrappers below tolerate running without a tmux server.
type SessionManager interface {
	HasSession(name string) bool
	CreateSlotSession(name, slotPath string) error
	KillSession(name string) error
}

// SlotService sequences slot lifecycle operations: create, delete, sync,
// merge, and the repair commands. Each operation loads the registry,
// works, and writes it back; steps block on the external processes they
// spawn.
type SlotService struct {
	store     *registry.Store
	git       *GitService
	scan      *ScanService
	ports     *PortService
	workspace *WorkspaceService
	docker    *DockerService
	reconcile *ReconcileService
	sessions  SessionManager
	out       io.Writer
}

// NewSlotService creates a SlotService. sessions may be nil when no tmux
// server is available.
func NewSlotService(
	store *registry.Store,
	git *GitService,
	scan *ScanService,
	ports *PortService,
	workspace *WorkspaceService,
	docker *DockerService,
	reconcile *ReconcileService,
	sessions SessionManager,
	out io.Writer,
) *SlotService {
	if out == nil {
		out = os.Stdout
	}
	return &SlotService{
		store:     store,
		git:       git,
		scan:      scan,
		ports:     ports,
		workspace: workspace,
		docker:    docker,
		reconcile: reconcile,
		sessions:  sessions,
		out:       out,
	}
}

func (s *SlotService) logf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Resolved carries everything a slot command needs after identifier
// resolution.
type Resolved struct {
	Registry *models.Registry
	Key      string
	Slot     models.Slot
	Project  models.Project
	Path     string
}

var trailingNumberRe = regexp.MustCompile(`-(\d+)$`)

// inferIdentifier derives a slot identifier from a slot directory name.
// The project-prefix cut runs first so a named slot ending in digits
// (app-exp-2) keeps its full name instead of collapsing to the number.
func inferIdentifier(base, projectName string) string {
	if rest, ok := strings.CutPrefix(base, projectName+"-"); ok {
		return rest
	}
	if m := trailingNumberRe.FindStringSubmatch(base); len(m) > 1 {
		return m[1]
	}
	return ""
}

// Resolve finds the slot a command refers to: an explicit numeric or
// named identifier, or (when identifier is empty) the slot owning the
// current directory.
func (s *SlotService) Resolve(cwd, identifier string) (*Resolved, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	mainRepo, projectName := DetectProject(s.git, cwd)
	if mainRepo == "" {
		return nil, fmt.Errorf("not inside a registered project checkout (no git repository found)")
	}
	project, ok := reg.Projects[projectName]
	if !ok {
		return nil, fmt.Errorf("project %s is not registered, run `slot init` in the project first", projectName)
	}

	if identifier == "" {
		identifier = inferIdentifier(filepath.Base(cwd), projectName)
	}
	if identifier == "" {
		return nil, fmt.Errorf("no slot identifier given and %s is not a slot directory", cwd)
	}

	key := models.SlotName(projectName, identifier)
	slot, ok := reg.Slots[key]
	if !ok {
		return nil, fmt.Errorf("slot %s not in registry", key)
	}
	return &Resolved{
		Registry: reg,
		Key:      key,
		Slot:     slot,
		Project:  project,
		Path:     models.SlotPath(project.Path, projectName, identifier),
	}, nil
}

// InitProject registers the current checkout as a project. Re-running
// updates the base port but never deletes anything.
func (s *SlotService) InitProject(cwd string, basePort int, group string) (string, error) {
	mainRepo, projectName := DetectProject(s.git, cwd)
	if mainRepo == "" {
		return "", fmt.Errorf("not in a git repository")
	}
	if group == "" {
		group = DetectGroupFromPath(mainRepo)
	}

	err := s.store.Update(func(reg *models.Registry) error {
		p := reg.Projects[projectName]
		p.Path = mainRepo
		if basePort > 0 {
			p.BasePort = basePort
		}
		if group != "" {
			p.Group = group
			if _, ok := reg.Groups[group]; !ok {
				reg.Groups[group] = models.Group{DisplayName: TitleCase(group), Order: len(reg.Groups) + 1}
			}
		}
		reg.Projects[projectName] = p
		return nil
	})
	if err != nil {
		return "", err
	}
	return projectName, nil
}

// CreateResult summarizes a successful create.
type CreateResult struct {
	Key     string
	Path    string
	Branch  string
	PortMap map[int]int
}

// Create provisions a new slot: worktree, untracked config, port
// rewrites, containers, database clone, dependencies, registry entry.
// The target path existing is a configuration error and nothing is
// mutated in that case.
func (s *SlotService) Create(cwd, identifier string) (*CreateResult, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	mainRepo, projectName := DetectProject(s.git, cwd)
	if mainRepo == "" {
		return nil, fmt.Errorf("not in a git repository")
	}
	project, ok := reg.Projects[projectName]
	if !ok {
		return nil, fmt.Errorf("project %s is not registered, run `slot init` first", projectName)
	}

	number := 0
	if identifier == "" {
		number = s.nextSlotNumber(reg, projectName, project.Path)
		identifier = strconv.Itoa(number)
		s.logf("Auto-assigned slot: %d", number)
	} else if n, err := strconv.Atoi(identifier); err == nil {
		if n <= 0 {
			return nil, fmt.Errorf("slot number must be positive, got %d", n)
		}
		number = n
	}

	key := models.SlotName(projectName, identifier)
	slotPath := models.SlotPath(project.Path, projectName, identifier)
	if _, ok := reg.Slots[key]; ok {
		return nil, fmt.Errorf("slot %s already registered", key)
	}
	if _, err := os.Stat(slotPath); err == nil {
		return nil, fmt.Errorf("target %s already exists", slotPath)
	}

	branch := "slot/" + identifier
	s.logf("Creating slot %s", key)

	if err := s.workspace.CreateWorktree(project.Path, slotPath, branch); err != nil {
		return nil, err
	}
	s.logf("✓ Created worktree on branch %s", branch)

	copied, err := s.workspace.CopyIgnoredFiles(project.Path, slotPath)
	if err != nil {
		s.logf("! Could not copy untracked config: %v", err)
	} else {
		s.logf("✓ Copied %d untracked config files", copied)
	}

	discriminator := number
	if discriminator == 0 {
		discriminator = portalloc.NamedDiscriminator(identifier)
	}

	s.logf("Scanning project ports...")
	mainPorts, err := s.scan.ScanPorts(project.Path)
	if err != nil {
		return nil, err
	}

	var portMap map[int]int
	if len(mainPorts) > 0 {
		result, err := s.ports.Allocate(mainPorts, discriminator)
		if err != nil {
			return nil, fmt.Errorf("port allocation failed: %w", err)
		}
		for _, a := range result.Allocations {
			if a.Probes > 0 {
				s.logf("  %s: %d → %d (%d collisions skipped)", a.Label, a.Main, a.Slot, a.Probes)
			} else {
				s.logf("  %s: %d → %d", a.Label, a.Main, a.Slot)
			}
		}
		portMap = result.PortMap

		touched, err := s.workspace.RewriteEnvFiles(slotPath, portMap, key)
		if err != nil {
			return nil, err
		}
		for _, rel := range touched {
			s.logf("  Updated: %s", rel)
		}
		composeTouched, err := s.workspace.RewriteComposeFiles(slotPath, key)
		if err != nil {
			return nil, err
		}
		for _, rel := range composeTouched {
			s.logf("  Updated: %s (container_name)", rel)
		}
		s.logf("✓ Port mapping complete")

		s.logf("Starting containers and cloning database...")
		for _, res := range s.docker.ProvisionDatabases(project.Path, slotPath, true) {
			base := filepath.Base(res.ComposeDir)
			switch {
			case res.Cloned:
				s.logf("  ✓ %s: containers up, database cloned", base)
			case res.Err != nil:
				s.logf("  ! %s: %v", base, res.Err)
			}
		}
	} else {
		s.logf("  No ports discovered, skipping port mapping")
	}

	s.logf("Installing dependencies...")
	for _, err := range s.workspace.InstallDeps(slotPath) {
		s.logf("  ! %v", err)
	}

	err = s.store.Update(func(reg *models.Registry) error {
		slot := models.Slot{
			Project:   projectName,
			Branch:    branch,
			CreatedAt: time.Now().Format(time.RFC3339),
		}
		if number > 0 {
			slot.Number = number
		} else {
			slot.Name = identifier
		}
		reg.Slots[key] = slot
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record slot: %w", err)
	}

	return &CreateResult{Key: key, Path: slotPath, Branch: branch, PortMap: portMap}, nil
}

// nextSlotNumber picks max(registered, on-disk) + 1 so a directory the
// registry does not know about is never clobbered.
func (s *SlotService) nextSlotNumber(reg *models.Registry, projectName, projectPath string) int {
	max := 0
	for _, slot := range reg.Slots {
		if slot.Project == projectName && slot.Number > max {
			max = slot.Number
		}
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(projectPath), projectName+"-*"))
	for _, m := range matches {
		if match := trailingNumberRe.FindStringSubmatch(filepath.Base(m)); len(match) > 1 {
			if n, err := strconv.Atoi(match[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return max + 1
}

// Delete tears a slot down. Locked slots are never deleted, not even
// with force; dirty or unpushed slots require force.
func (s *SlotService) Delete(cwd, identifier string, force bool) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}
	if res.Slot.Locked {
		note := res.Slot.LockNote
		if note != "" {
			note = " (" + note + ")"
		}
		return fmt.Errorf("slot %s is locked%s, unlock it first", res.Key, note)
	}

	if _, err := os.Stat(res.Path); err == nil {
		projectBranch, err := s.git.GetCurrentBranch(res.Project.Path)
		if err != nil {
			return fmt.Errorf("failed to read project branch: %w", err)
		}
		facts := s.reconcile.ClassifySlotDir(res.Path, false, projectBranch)
		state := safety.Classify(facts)
		s.logf("Checked %s: %s (%s)", res.Key, state, factsDetail(facts))
		if !safety.Removable(state, force) {
			return fmt.Errorf("slot %s is %s, use --force to delete anyway", res.Key, state)
		}

		s.logf("Stopping containers...")
		s.docker.ComposeDownAll(res.Path)

		if err := s.git.RemoveWorktree(res.Project.Path, res.Path, res.Slot.Branch); err != nil {
			return err
		}
		s.logf("✓ Removed worktree and branch %s", res.Slot.Branch)
	} else {
		s.logf("Directory %s already gone, removing registry entry only", res.Path)
	}

	if s.sessions != nil {
		_ = s.sessions.KillSession(res.Key)
	}

	return s.store.Update(func(reg *models.Registry) error {
		delete(reg.Slots, res.Key)
		return nil
	})
}

// Sync rebases the slot branch onto the project's current branch. Any
// uncommitted change aborts before touching history; a conflicted rebase
// is rolled back by GitService.Rebase.
func (s *SlotService) Sync(cwd, identifier string) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}

	dirty, err := s.git.IsDirty(res.Path)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("slot %s has uncommitted changes, commit or stash them before syncing", res.Key)
	}

	projectBranch, err := s.git.GetCurrentBranch(res.Project.Path)
	if err != nil {
		return err
	}
	s.logf("Rebasing %s onto %s...", res.Slot.Branch, projectBranch)
	if err := s.git.Rebase(res.Path, projectBranch); err != nil {
		s.logf("Rebase failed; your working copy is unchanged.")
		s.logf("To retry manually: git -C %s rebase %s", res.Path, projectBranch)
		return err
	}
	s.logf("✓ Synced %s", res.Key)
	return nil
}

// Merge merges the slot branch into the project's current branch. On
// conflict the merge is left in place in the project checkout and the
// recovery commands are printed.
func (s *SlotService) Merge(cwd, identifier string) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}

	dirty, err := s.git.IsDirty(res.Project.Path)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("project checkout has uncommitted changes, commit or stash them before merging")
	}

	projectBranch, err := s.git.GetCurrentBranch(res.Project.Path)
	if err != nil {
		return err
	}
	s.logf("Merging %s into %s...", res.Slot.Branch, projectBranch)
	if err := s.git.Merge(res.Project.Path, res.Slot.Branch); err != nil {
		s.logf("Merge conflicted. Resolve and commit in %s, or run:", res.Project.Path)
		s.logf("  git -C %s merge --abort", res.Project.Path)
		return err
	}
	s.logf("✓ Merged %s into %s", res.Slot.Branch, projectBranch)
	return nil
}

// Done merges the slot and, only if the merge lands, deletes it. A
// conflict leaves the slot active.
func (s *SlotService) Done(cwd, identifier string, force bool) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}
	if res.Slot.Locked {
		return fmt.Errorf("slot %s is locked, unlock it first", res.Key)
	}
	if err := s.Merge(cwd, identifier); err != nil {
		return err
	}
	return s.Delete(cwd, identifier, force)
}

// FixPorts recomputes the slot's port map from a fresh scan of the
// project and reapplies the rewrites. The rewrite functions are
// idempotent, so an already-correct slot produces no diff.
func (s *SlotService) FixPorts(cwd, identifier string) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}

	mainPorts, err := s.scan.ScanPorts(res.Project.Path)
	if err != nil {
		return err
	}
	if len(mainPorts) == 0 {
		s.logf("No ports discovered in %s, nothing to fix", res.Project.Path)
		return nil
	}

	discriminator := res.Slot.Number
	if discriminator == 0 {
		discriminator = portalloc.NamedDiscriminator(res.Slot.Name)
	}

	// The slot's own containers are usually up while fixing, which
	// makes its current ports look busy. Those ports are ours, so the
	// re-derivation must be able to land on them again.
	slotPorts, err := s.scan.ScanPorts(res.Path)
	if err != nil {
		return err
	}
	result, err := portalloc.Allocate(mainPorts, discriminator, reallocFree(slotPorts, s.ports.IsFree))
	if err != nil {
		return fmt.Errorf("port allocation failed: %w", err)
	}
	for _, a := range result.Allocations {
		s.logf("  %s: %d → %d", a.Label, a.Main, a.Slot)
	}

	touched, err := s.workspace.RewriteEnvFiles(res.Path, result.PortMap, res.Key)
	if err != nil {
		return err
	}
	composeTouched, err := s.workspace.RewriteComposeFiles(res.Path, res.Key)
	if err != nil {
		return err
	}
	for _, rel := range append(touched, composeTouched...) {
		s.logf("  Updated: %s", rel)
	}
	if len(touched)+len(composeTouched) == 0 {
		s.logf("✓ Ports already correct, no files touched")
	} else {
		s.logf("✓ Fixed ports in %d files", len(touched)+len(composeTouched))
	}
	return nil
}

// reallocFree wraps a liveness probe so ports the slot's config already
// holds count as free, keeping re-derived maps stable while the slot's
// containers are running.
func reallocFree(slotPorts discovery.Ports, isFree func(int) bool) func(int) bool {
	return func(port int) bool {
		if _, ours := slotPorts[port]; ours {
			return true
		}
		return isFree(port)
	}
}

// DbSync re-clones the source database into the slot without restarting
// containers.
func (s *SlotService) DbSync(cwd, identifier string) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}
	results := s.docker.ProvisionDatabases(res.Project.Path, res.Path, false)
	if len(results) == 0 {
		return fmt.Errorf("no container definitions found under %s", res.Path)
	}
	failed := 0
	for _, r := range results {
		base := filepath.Base(r.ComposeDir)
		if r.Cloned {
			s.logf("✓ %s: database cloned", base)
		} else {
			failed++
			s.logf("! %s: %v", base, r.Err)
		}
	}
	if failed == len(results) {
		return fmt.Errorf("database sync failed for every container definition")
	}
	return nil
}

// SetLock sets or clears the lock flag. The note is only ever taken
// from an explicit flag, never inferred from positional arguments.
func (s *SlotService) SetLock(cwd, identifier string, locked bool, note string) (string, error) {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return "", err
	}
	err = s.store.Update(func(reg *models.Registry) error {
		slot := reg.Slots[res.Key]
		slot.Locked = locked
		if locked {
			slot.LockNote = note
		} else {
			slot.LockNote = ""
		}
		reg.Slots[res.Key] = slot
		return nil
	})
	return res.Key, err
}

// EditTags adds or removes a tag on a slot.
func (s *SlotService) EditTags(cwd, identifier, verb, tag string) (string, error) {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return "", err
	}
	err = s.store.Update(func(reg *models.Registry) error {
		slot := reg.Slots[res.Key]
		switch verb {
		case "add":
			for _, t := range slot.Tags {
				if t == tag {
					return nil
				}
			}
			slot.Tags = append(slot.Tags, tag)
			sort.Strings(slot.Tags)
		case "rm":
			kept := slot.Tags[:0]
			for _, t := range slot.Tags {
				if t != tag {
					kept = append(kept, t)
				}
			}
			slot.Tags = kept
		default:
			return fmt.Errorf("unknown tag action %q (want add or rm)", verb)
		}
		reg.Slots[res.Key] = slot
		return nil
	})
	return res.Key, err
}

// OpenPR pushes the slot branch and opens a pull request for it.
func (s *SlotService) OpenPR(cwd, identifier string) error {
	res, err := s.Resolve(cwd, identifier)
	if err != nil {
		return err
	}
	s.logf("Pushing %s...", res.Slot.Branch)
	if err := s.git.Push(res.Path); err != nil {
		return err
	}
	cmd := newInheritedCommand(res.Path, "gh", "pr", "create", "--head", res.Slot.Branch, "--fill")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gh pr create failed: %w", err)
	}
	return nil
}

// CleanPlan is the outcome of a clean sweep: what would be (or was)
// removed, and what was kept with the reason.
type CleanPlan struct {
	RemoveEntries   []string // registry entries with no backing directory
	RemoveWorktrees []SafetyEntry
	Kept            []SafetyEntry
	OrphanReport    *OrphanReport
}

// Clean sweeps orphans and removable working copies for the project
// containing cwd. With do=false nothing is touched; with do=true clean
// entries are removed, and force additionally removes unpushed/unmerged
// ones. Locked and dirty working copies are never removed.
func (s *SlotService) Clean(cwd string, do, force bool) (*CleanPlan, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	_, projectName := DetectProject(s.git, cwd)
	if projectName == "" {
		return nil, fmt.Errorf("not in a git repository")
	}
	if _, ok := reg.Projects[projectName]; !ok {
		return nil, fmt.Errorf("project %s is not registered", projectName)
	}

	plan := &CleanPlan{OrphanReport: s.reconcile.Orphans(reg)}

	for _, key := range plan.OrphanReport.RegistryEntries {
		if slot, ok := reg.Slots[key]; ok && slot.Project == projectName {
			plan.RemoveEntries = append(plan.RemoveEntries, key)
		}
	}
	sort.Strings(plan.RemoveEntries)

	entries, err := s.reconcile.ClassifyAll(reg, projectName)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if safety.Removable(e.State, force) {
			plan.RemoveWorktrees = append(plan.RemoveWorktrees, e)
		} else {
			plan.Kept = append(plan.Kept, e)
		}
	}

	if !do {
		return plan, nil
	}

	project := reg.Projects[projectName]
	for _, e := range plan.RemoveWorktrees {
		s.logf("Removing %s (%s)", e.Path, e.State)
		s.docker.ComposeDownAll(e.Path)
		if err := s.git.RemoveWorktree(project.Path, e.Path, e.Branch); err != nil {
			s.logf("! %v", err)
			continue
		}
		if s.sessions != nil {
			_ = s.sessions.KillSession(e.Name)
		}
	}
	err = s.store.Update(func(reg *models.Registry) error {
		for _, key := range plan.RemoveEntries {
			delete(reg.Slots, key)
		}
		for _, e := range plan.RemoveWorktrees {
			delete(reg.Slots, e.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}
