// Package discovery extracts port declarations from project configuration
// text. Everything here is pure: callers feed file contents in and merge
// the results, which keeps re-scans deterministic.
package discovery

import (
	"regexp"
	"strconv"
	"strings"
)

// Ports maps a discovered port number to the display label of its first
// sighting (variable name, "URL", or "FLAG").
type Ports map[int]string

// Ports below this are reserved/well-known and never treated as project
// ports.
const minPort = 1000

var (
	portVarRe   = regexp.MustCompile(`^([A-Z][A-Z0-9_]*PORT|PORT)=["']?(\d+)["']?`)
	localhostRe = regexp.MustCompile(`localhost:(\d+)`)
	portFlagRe  = regexp.MustCompile(`(?:^|\s)-p[= ](\d+)(?:\s|$|"|')`)
)

// Manifest filenames scanned in addition to env-marker files.
var manifestNames = map[string]bool{
	"package.json": true,
	"Makefile":     true,
}

// Directories never descended into during a scan.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	"build":        true,
	".turbo":       true,
	".venv":        true,
	"vendor":       true,
	"coverage":     true,
}

// IsCandidateFile reports whether a file name should be scanned: any name
// carrying the env marker, or one of the fixed manifest names.
func IsCandidateFile(name string) bool {
	return strings.Contains(name, ".env") || manifestNames[name]
}

// SkipDir reports whether a directory name is excluded from the walk.
func SkipDir(name string) bool {
	return skipDirs[name]
}

// EnvFile reports whether a file name is an env-marker file (the subset of
// candidates that also get rewritten during provisioning).
func EnvFile(name string) bool {
	return strings.Contains(name, ".env")
}

// Merge scans content line by line and records each port not already
// present in ports. The first label encountered for a port wins, so
// merging the same content twice is a no-op.
func Merge(ports Ports, content string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := portVarRe.FindStringSubmatch(trimmed); len(m) > 2 {
			record(ports, m[2], m[1])
		}
		for _, m := range localhostRe.FindAllStringSubmatch(line, -1) {
			record(ports, m[1], "URL")
		}
		for _, m := range portFlagRe.FindAllStringSubmatch(line, -1) {
			record(ports, m[1], "FLAG")
		}
	}
}

func record(ports Ports, raw, label string) {
	port, err := strconv.Atoi(raw)
	if err != nil || port <= minPort {
		return
	}
	if _, ok := ports[port]; !ok {
		ports[port] = label
	}
}
