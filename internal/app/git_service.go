package app

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// GitService provides git operations for projects and slots.
type GitService struct{}

// NewGitService creates a new GitService.
func NewGitService() *GitService {
	return &GitService{}
}

// GetCurrentBranch returns the current branch name.
func (s *GitService) GetCurrentBranch(repoPath string) (string, error) {
	output, err := s.runGitOutput(repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// IsDirty checks if the working directory has uncommitted changes.
func (s *GitService) IsDirty(repoPath string) (bool, error) {
	output, err := s.runGitOutput(repoPath, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// AddWorktree creates a worktree at targetPath on a new branch.
func (s *GitService) AddWorktree(repoPath, targetPath, branch string) error {
	if err := s.runGit(repoPath, "worktree", "add", targetPath, "-b", branch); err != nil {
		return fmt.Errorf("failed to add worktree %s: %w", targetPath, err)
	}
	return nil
}

// RemoveWorktree removes a worktree and deletes its branch.
func (s *GitService) RemoveWorktree(repoPath, targetPath, branch string) error {
	if err := s.runGit(repoPath, "worktree", "remove", targetPath, "--force"); err != nil {
		return fmt.Errorf("failed to remove worktree %s: %w", targetPath, err)
	}
	// Branch may already be gone; not an error.
	_ = s.runGit(repoPath, "branch", "-D", branch)
	return nil
}

// ListWorktrees returns the worktree paths registered on a repository,
// excluding the main checkout itself.
func (s *GitService) ListWorktrees(repoPath string) ([]string, error) {
	output, err := s.runGitOutput(repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		if rest, ok := strings.CutPrefix(line, "worktree "); ok {
			p := strings.TrimSpace(rest)
			if p != "" && p != repoPath {
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

// WorktreeMainRepo resolves the main repository a worktree belongs to by
// reading its .git link file. Returns "" if the path is not a worktree.
func (s *GitService) WorktreeMainRepo(worktreePath string) string {
	data, err := os.ReadFile(filepath.Join(worktreePath, ".git"))
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(data))
	gitdir, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return ""
	}
	gitdir = strings.TrimSpace(gitdir)
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Clean(filepath.Join(worktreePath, gitdir))
	}
	marker := string(filepath.Separator) + ".git" + string(filepath.Separator) + "worktrees"
	idx := strings.Index(gitdir, marker)
	if idx <= 0 {
		return ""
	}
	return gitdir[:idx]
}

// IsWorktree reports whether path is a linked worktree (a .git file, not
// a .git directory).
func (s *GitService) IsWorktree(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && !info.IsDir()
}

// MergeBase returns the merge-base commit of two revisions, or an error
// if they share no common ancestor.
func (s *GitService) MergeBase(repoPath, a, b string) (string, error) {
	output, err := s.runGitOutput(repoPath, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("no common ancestor between %s and %s: %w", a, b, err)
	}
	return strings.TrimSpace(output), nil
}

// AheadBehind returns how many commits branch is ahead of and behind base
// within the same repository.
func (s *GitService) AheadBehind(repoPath, base, branch string) (ahead, behind int, err error) {
	output, err := s.runGitOutput(repoPath, "rev-list", "--left-right", "--count", base+"..."+branch)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Fields(strings.TrimSpace(output))
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", output)
	}
	behind, _ = strconv.Atoi(parts[0])
	ahead, _ = strconv.Atoi(parts[1])
	return ahead, behind, nil
}

// HasUpstream reports whether the checked-out branch tracks a remote.
func (s *GitService) HasUpstream(repoPath string) bool {
	return s.runGit(repoPath, "rev-parse", "--abbrev-ref", "@{u}") == nil
}

// UnpushedCount returns the number of commits ahead of the tracking
// branch, or -1 if there is no tracking branch.
func (s *GitService) UnpushedCount(repoPath string) int {
	if !s.HasUpstream(repoPath) {
		return -1
	}
	output, err := s.runGitOutput(repoPath, "rev-list", "--count", "@{u}..HEAD")
	if err != nil {
		return -1
	}
	n, _ := strconv.Atoi(strings.TrimSpace(output))
	return n
}

// UnmergedCount returns the number of commits on HEAD not reachable from
// the given base branch.
func (s *GitService) UnmergedCount(repoPath, baseBranch string) (int, error) {
	output, err := s.runGitOutput(repoPath, "rev-list", "--count", baseBranch+"..HEAD")
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(output))
	return n, nil
}

// Rebase rebases the checkout onto the given branch. On conflict the
// rebase is aborted so the working copy is back in its pre-rebase state,
// and the returned error says so.
func (s *GitService) Rebase(repoPath, ontoBranch string) error {
	if err := s.runGit(repoPath, "rebase", ontoBranch); err != nil {
		_ = s.runGit(repoPath, "rebase", "--abort")
		return fmt.Errorf("rebase onto %s conflicted and was aborted: %w", ontoBranch, err)
	}
	return nil
}

// Merge merges the given branch into the checkout with a merge commit.
// On conflict the merge is left in progress for the user to resolve and
// the error reports the conflict.
func (s *GitService) Merge(repoPath, branch string) error {
	if err := s.runGit(repoPath, "merge", "--no-ff", branch); err != nil {
		return fmt.Errorf("merge of %s conflicted: %w", branch, err)
	}
	return nil
}

// AbortMerge aborts an in-progress merge.
func (s *GitService) AbortMerge(repoPath string) error {
	return s.runGit(repoPath, "merge", "--abort")
}

// Push pushes the current branch, setting upstream on first push.
func (s *GitService) Push(repoPath string) error {
	branch, err := s.GetCurrentBranch(repoPath)
	if err != nil {
		return err
	}
	if err := s.runGit(repoPath, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("failed to push %s: %w", branch, err)
	}
	return nil
}

// ListIgnoredFiles returns paths (relative to the repo root) that git
// knows are intentionally untracked: local config, credentials, caches.
func (s *GitService) ListIgnoredFiles(repoPath string) ([]string, error) {
	output, err := s.runGitOutput(repoPath, "ls-files", "--others", "--ignored", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// runGit executes a git command and returns an error carrying stderr.
func (s *GitService) runGit(repoPath string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// runGitOutput executes a git command and returns its stdout.
func (s *GitService) runGitOutput(repoPath string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
