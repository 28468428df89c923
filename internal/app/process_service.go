package app

import (
	"os/exec"
	"strings"
)

// AgentProcess is one running coding-agent process with its working
// directory, as observed from the process table.
type AgentProcess struct {
	PID     string
	Cwd     string
	Runtime string
}

// ProcessService snapshots running agent processes. Observation is
// best-effort: a missing tool or no matches yields an empty snapshot.
type ProcessService struct {
	// AgentPattern is the pgrep pattern identifying agent processes.
	AgentPattern string
}

// NewProcessService creates a ProcessService watching for the default
// agent CLI.
func NewProcessService() *ProcessService {
	return &ProcessService{AgentPattern: "claude"}
}

// AgentProcesses lists running agent processes and their working
// directories.
func (s *ProcessService) AgentProcesses() []AgentProcess {
	out, err := exec.Command("pgrep", "-f", s.AgentPattern).Output()
	if err != nil {
		return nil
	}

	var procs []AgentProcess
	for _, pid := range strings.Fields(string(out)) {
		cwd := processCwd(pid)
		if cwd == "" {
			continue
		}
		procs = append(procs, AgentProcess{
			PID:     pid,
			Cwd:     cwd,
			Runtime: processRuntime(pid),
		})
	}
	return procs
}

// processCwd resolves a process's working directory via lsof.
func processCwd(pid string) string {
	out, err := exec.Command("lsof", "-a", "-d", "cwd", "-p", pid, "-Fn").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if rest, ok := strings.CutPrefix(line, "n"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// processRuntime returns the elapsed time of a process (ps etime).
func processRuntime(pid string) string {
	out, err := exec.Command("ps", "-p", pid, "-o", "etime=").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
