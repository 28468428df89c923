package app

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/slot/internal/core/rewrite"
)

// Files larger than this are never copied into a slot; anything that big
// is a build artifact or a database, not configuration.
const copySizeCeiling = 1 << 20

// Untracked paths containing these fragments are build artifacts and are
// not copied into a new slot.
var copySkipPatterns = []string{
	"node_modules", "dist/", "build/", ".next/", ".log",
	".husky/", "backups/", ".turbo/", ".venv/", ".trunk/", "coverage/",
}

// WorkspaceService provisions isolated working copies.
type WorkspaceService struct {
	git  *GitService
	scan *ScanService
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(git *GitService, scan *ScanService) *WorkspaceService {
	return &WorkspaceService{git: git, scan: scan}
}

// CreateWorktree creates the slot working copy on a fresh branch. The
// branch starts at the project's current HEAD, so slot and project share
// history by construction.
func (s *WorkspaceService) CreateWorktree(projectPath, slotPath, branch string) error {
	if _, err := os.Stat(slotPath); err == nil {
		return fmt.Errorf("target %s already exists", slotPath)
	}
	return s.git.AddWorktree(projectPath, slotPath, branch)
}

// CopyIgnoredFiles copies every intentionally-untracked file from the
// project into the slot, preserving relative path and mode, skipping
// artifacts and oversized files.
func (s *WorkspaceService) CopyIgnoredFiles(projectPath, slotPath string) (int, error) {
	files, err := s.git.ListIgnoredFiles(projectPath)
	if err != nil {
		return 0, fmt.Errorf("failed to list ignored files: %w", err)
	}

	copied := 0
	for _, rel := range files {
		if skipCopy(rel) {
			continue
		}
		src := filepath.Join(projectPath, rel)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() || info.Size() > copySizeCeiling {
			continue
		}
		dst := filepath.Join(slotPath, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			continue
		}
		content, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		if err := os.WriteFile(dst, content, info.Mode()); err != nil {
			continue
		}
		copied++
	}
	return copied, nil
}

func skipCopy(rel string) bool {
	for _, p := range copySkipPatterns {
		if strings.Contains(rel, p) {
			return true
		}
	}
	return false
}

// RewriteEnvFiles applies the port map and resource name to every
// env-marker file in the slot. Files are written only when the content
// actually changes; each touched relative path is returned for logging.
func (s *WorkspaceService) RewriteEnvFiles(slotPath string, portMap map[int]int, slotName string) ([]string, error) {
	resourceName := rewrite.ResourceName(slotName)
	files, err := s.scan.EnvFiles(slotPath)
	if err != nil {
		return nil, err
	}

	var touched []string
	for _, rel := range files {
		path := filepath.Join(slotPath, rel)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		updated := rewrite.EnvContent(string(content), portMap, resourceName)
		if updated == string(content) {
			continue
		}
		if err := os.WriteFile(path, []byte(updated), info.Mode()); err != nil {
			return touched, fmt.Errorf("failed to rewrite %s: %w", rel, err)
		}
		touched = append(touched, rel)
	}
	return touched, nil
}

// RewriteComposeFiles parameterizes hard-coded container names on the
// slot's resource key so two slots can run the same image side by side.
func (s *WorkspaceService) RewriteComposeFiles(slotPath, slotName string) ([]string, error) {
	resourceName := rewrite.ResourceName(slotName)
	files, err := s.scan.ComposeFiles(slotPath)
	if err != nil {
		return nil, err
	}

	var touched []string
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		updated := rewrite.ComposeContent(string(content), resourceName)
		if updated == string(content) {
			continue
		}
		if err := os.WriteFile(path, []byte(updated), info.Mode()); err != nil {
			rel, _ := filepath.Rel(slotPath, path)
			return touched, fmt.Errorf("failed to rewrite %s: %w", rel, err)
		}
		rel, _ := filepath.Rel(slotPath, path)
		touched = append(touched, rel)
	}
	return touched, nil
}

// InstallDeps runs dependency installation for every lockfile location in
// the slot. Install failures are reported per location, not fatal.
func (s *WorkspaceService) InstallDeps(slotPath string) []error {
	locks, err := s.scan.Lockfiles(slotPath)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, lock := range locks {
		cmd := exec.Command(lock.Tool, lock.Args...)
		cmd.Dir = lock.Dir
		if err := cmd.Run(); err != nil {
			rel, _ := filepath.Rel(slotPath, lock.Dir)
			errs = append(errs, fmt.Errorf("%s install in %s: %w", lock.Tool, rel, err))
		}
	}
	return errs
}
