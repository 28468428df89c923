package app

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"

	"github.com/example/slot/internal/core/discovery"
	"github.com/example/slot/internal/core/portalloc"
)

// PortService probes live network state and runs allocation batches.
// Allocation against one live snapshot must not run concurrently with
// another batch; commands are sequential so this holds by construction.
type PortService struct{}

// NewPortService creates a new PortService.
func NewPortService() *PortService {
	return &PortService{}
}

// IsFree reports whether the host will currently accept a bind on the
// port. The listener is opened and released immediately.
func (s *PortService) IsFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Allocate maps the discovered main ports for the given discriminator,
// probing the live port table through IsFree.
func (s *PortService) Allocate(ports discovery.Ports, discriminator int) (*portalloc.Result, error) {
	return portalloc.Allocate(ports, discriminator, s.IsFree)
}

// ListeningPort is one entry of the live listening-port table.
type ListeningPort struct {
	Port    int    `json:"port"`
	Command string `json:"command"`
	PID     string `json:"pid"`
}

// ListeningPorts reads the live TCP listening table via lsof. A missing
// lsof or empty table yields an empty snapshot, not an error: callers
// treat the snapshot as best-effort ground truth.
func (s *PortService) ListeningPorts() []ListeningPort {
	out, err := exec.Command("lsof", "-iTCP", "-sTCP:LISTEN", "-P", "-n").Output()
	if err != nil {
		return nil
	}

	var entries []ListeningPort
	seen := make(map[int]bool)
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		// NAME column looks like *:3000 or 127.0.0.1:3000
		name := fields[len(fields)-2]
		if fields[len(fields)-1] == "(LISTEN)" {
			name = fields[len(fields)-2]
		} else {
			name = fields[len(fields)-1]
		}
		idx := strings.LastIndex(name, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(name[idx+1:])
		if err != nil || seen[port] {
			continue
		}
		seen[port] = true
		entries = append(entries, ListeningPort{Port: port, Command: fields[0], PID: fields[1]})
	}
	return entries
}
