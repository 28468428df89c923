package app

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectProject resolves the main repository and project name for a
// working directory. Inside a slot worktree it follows the .git link back
// to the main checkout; inside the main checkout it is the directory
// itself.
func DetectProject(git *GitService, cwd string) (mainRepo, project string) {
	if git.IsWorktree(cwd) {
		if repo := git.WorktreeMainRepo(cwd); repo != "" {
			return repo, filepath.Base(repo)
		}
	}
	if info, err := os.Stat(filepath.Join(cwd, ".git")); err == nil && info.IsDir() {
		return cwd, filepath.Base(cwd)
	}
	return "", ""
}

// DetectGroupFromPath infers a group name from a path shaped like
// .../Projects/<group>/<project>. Returns "" when the layout does not
// match.
func DetectGroupFromPath(path string) string {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	for i, part := range parts {
		if part != "Projects" {
			continue
		}
		// Need a group segment and at least a project under it.
		if i+2 < len(parts) {
			return parts[i+1]
		}
		return ""
	}
	return ""
}

// TitleCase capitalizes the first letter of a name for group display.
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
