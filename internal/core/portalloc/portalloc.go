// Package portalloc derives per-slot ports from a project's main ports.
// The probing is deliberately greedy and order-dependent: within one batch
// no slot port may equal another slot port, any main port, or a port the
// host is already listening on.
package portalloc

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/example/slot/internal/core/discovery"
)

// maxProbes bounds collision probing per port so an environment that
// refuses every bind surfaces an error instead of looping forever.
const maxProbes = 200

// Allocation records one port decision for console-visible proof.
type Allocation struct {
	Label  string
	Main   int
	Slot   int
	Probes int // collisions skipped before settling
}

// Result is the outcome of one allocation batch.
type Result struct {
	Allocations []Allocation
	// PortMap is the main → slot mapping, identical information keyed
	// for rewriting.
	PortMap map[int]int
}

// Allocate maps every discovered main port to a free slot port. free
// reports whether the host will currently accept a bind on the port; it
// is injected so the batch logic stays testable without touching the
// network. Main ports are visited in ascending order so the result is
// deterministic for a given live-port state.
func Allocate(ports discovery.Ports, discriminator int, free func(int) bool) (*Result, error) {
	mains := make([]int, 0, len(ports))
	for p := range ports {
		mains = append(mains, p)
	}
	sort.Ints(mains)

	mainSet := make(map[int]bool, len(mains))
	for _, p := range mains {
		mainSet[p] = true
	}

	result := &Result{PortMap: make(map[int]int, len(mains))}
	assigned := make(map[int]bool, len(mains))

	for _, main := range mains {
		candidate := main + discriminator
		probes := 0
		for mainSet[candidate] || assigned[candidate] || !free(candidate) {
			probes++
			if probes > maxProbes {
				return nil, fmt.Errorf("no free port for %d (%s): gave up after %d probes starting at %d",
					main, ports[main], maxProbes, main+discriminator)
			}
			candidate++
		}
		assigned[candidate] = true
		result.PortMap[main] = candidate
		result.Allocations = append(result.Allocations, Allocation{
			Label:  ports[main],
			Main:   main,
			Slot:   candidate,
			Probes: probes,
		})
	}
	return result, nil
}

// NamedDiscriminator synthesizes a stable numeric discriminator for a
// named slot, kept away from the low offsets that numbered slots use.
func NamedDiscriminator(name string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return 10 + int(h.Sum32()%90)
}
