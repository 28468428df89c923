// Package rewrite performs line-oriented surgery on configuration and
// container-definition text. Functions are pure (content in, content
// out) so provisioning and fix-ports can be verified without a
// filesystem, and every function is idempotent: feeding its own output
// back with the same arguments produces no further change.
package rewrite

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	composeNameRe = regexp.MustCompile(`(?m)^COMPOSE_PROJECT_NAME=.*$`)
	sanitizeRe    = regexp.MustCompile(`[^a-z0-9-]`)

	// Port tokens are replaced in a single pass so one mapping's output
	// can never be re-matched by another mapping in the same batch.
	assignPortRe    = regexp.MustCompile(`=(["']?)(\d+)(["']?)`)
	localhostPortRe = regexp.MustCompile(`localhost:(\d+)`)

	containerNameRe = regexp.MustCompile(`(?m)^(\s*container_name:\s*)(\S+)\s*$`)
)

// ResourceName derives the unique resource-naming key for a slot:
// lowercased, anything outside [a-z0-9-] collapsed to '-'.
func ResourceName(slotName string) string {
	return sanitizeRe.ReplaceAllString(strings.ToLower(slotName), "-")
}

// EnvContent rewrites one env-marker file: upserts COMPOSE_PROJECT_NAME
// to the resource name and maps every main-port occurrence (bare or
// quoted assignment, or localhost reference) to its slot port.
func EnvContent(content string, portMap map[int]int, resourceName string) string {
	out := content

	if composeNameRe.MatchString(out) {
		out = composeNameRe.ReplaceAllString(out, "COMPOSE_PROJECT_NAME="+resourceName)
	} else {
		out = "COMPOSE_PROJECT_NAME=" + resourceName + "\n" + out
	}

	out = assignPortRe.ReplaceAllStringFunc(out, func(tok string) string {
		m := assignPortRe.FindStringSubmatch(tok)
		if mapped, ok := lookup(portMap, m[2]); ok {
			return "=" + m[1] + mapped + m[3]
		}
		return tok
	})
	out = localhostPortRe.ReplaceAllStringFunc(out, func(tok string) string {
		m := localhostPortRe.FindStringSubmatch(tok)
		if mapped, ok := lookup(portMap, m[1]); ok {
			return "localhost:" + mapped
		}
		return tok
	})
	return out
}

func lookup(portMap map[int]int, raw string) (string, bool) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return "", false
	}
	mapped, ok := portMap[port]
	if !ok {
		return "", false
	}
	return strconv.Itoa(mapped), true
}

// ComposeContent rewrites hard-coded container_name fields so the name
// defaults to the slot's resource key. The trailing role token of the
// original name (db, redis, ...) is kept as a suffix; names already
// parameterized on COMPOSE_PROJECT_NAME are left alone.
func ComposeContent(content, resourceName string) string {
	return containerNameRe.ReplaceAllStringFunc(content, func(line string) string {
		m := containerNameRe.FindStringSubmatch(line)
		prefix, name := m[1], m[2]
		if strings.Contains(name, "${COMPOSE_PROJECT_NAME") {
			return line
		}
		suffix := roleSuffix(name)
		return prefix + "${COMPOSE_PROJECT_NAME:-" + resourceName + "}-" + suffix
	})
}

func roleSuffix(name string) string {
	name = strings.Trim(name, `"'`)
	if idx := strings.LastIndexAny(name, "-_"); idx >= 0 && idx < len(name)-1 {
		return name[idx+1:]
	}
	return "db"
}
