package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/slot/internal/core/discovery"
)

// ScanService walks a project tree and feeds candidate files through the
// discovery extractors.
type ScanService struct{}

// NewScanService creates a new ScanService.
func NewScanService() *ScanService {
	return &ScanService{}
}

// ScanPorts discovers every port-like declaration under root. Re-scanning
// an unchanged tree yields the same set: the walk order is lexical and
// discovery keeps the first label per port.
func (s *ScanService) ScanPorts(root string) (discovery.Ports, error) {
	ports := discovery.Ports{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && discovery.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !discovery.IsCandidateFile(d.Name()) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		discovery.Merge(ports, string(content))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return ports, nil
}

// EnvFiles lists every env-marker file under root, relative paths, in
// walk order. These are the files the provisioner rewrites.
func (s *ScanService) EnvFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && discovery.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if discovery.EnvFile(d.Name()) {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				files = append(files, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list env files under %s: %w", root, err)
	}
	return files, nil
}

// ComposeFiles lists every container-definition file under root,
// absolute paths, in walk order.
func (s *ScanService) ComposeFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && discovery.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "docker-compose.yml" || d.Name() == "docker-compose.yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list compose files under %s: %w", root, err)
	}
	return files, nil
}

// Lockfiles lists dependency-manifest locations (directories) under root.
func (s *ScanService) Lockfiles(root string) ([]Lockfile, error) {
	var found []Lockfile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && discovery.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		switch d.Name() {
		case "pnpm-lock.yaml":
			found = append(found, Lockfile{Dir: filepath.Dir(path), Tool: "pnpm", Args: []string{"install", "--frozen-lockfile"}})
		case "package-lock.json":
			found = append(found, Lockfile{Dir: filepath.Dir(path), Tool: "npm", Args: []string{"ci"}})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lockfiles under %s: %w", root, err)
	}
	return found, nil
}

// Lockfile is a dependency-install location and the command that
// installs there.
type Lockfile struct {
	Dir  string
	Tool string
	Args []string
}
