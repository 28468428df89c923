package portalloc

import (
	"testing"

	"github.com/example/slot/internal/core/discovery"
)

func allFree(int) bool { return true }

func TestSimpleOffset(t *testing.T) {
	ports := discovery.Ports{3000: "PORT", 5432: "POSTGRES_PORT"}

	result, err := Allocate(ports, 1, allFree)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if result.PortMap[3000] != 3001 {
		t.Errorf("3000 → %d, want 3001", result.PortMap[3000])
	}
	if result.PortMap[5432] != 5433 {
		t.Errorf("5432 → %d, want 5433", result.PortMap[5432])
	}
}

func TestSlotPortNeverAliasesMainPort(t *testing.T) {
	// 3000+1 = 3001, which is itself a main port, so the first candidate
	// must advance past it.
	ports := discovery.Ports{3000: "A", 3001: "B"}

	result, err := Allocate(ports, 1, allFree)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	assertBatchInvariant(t, ports, result, nil)
}

func TestDenseRangeBatchInvariant(t *testing.T) {
	ports := discovery.Ports{}
	for p := 3000; p < 3010; p++ {
		ports[p] = "X"
	}
	busy := map[int]bool{3011: true, 3013: true}

	result, err := Allocate(ports, 1, func(p int) bool { return !busy[p] })
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	assertBatchInvariant(t, ports, result, busy)
}

// assertBatchInvariant checks the concrete allocation rule: the map is
// injective, and no slot port equals a main port or a busy live port.
func assertBatchInvariant(t *testing.T, ports discovery.Ports, result *Result, busy map[int]bool) {
	t.Helper()
	seen := make(map[int]int)
	for main, slot := range result.PortMap {
		if prev, dup := seen[slot]; dup {
			t.Errorf("slot port %d assigned to both %d and %d", slot, prev, main)
		}
		seen[slot] = main
		if _, isMain := ports[slot]; isMain {
			t.Errorf("slot port %d for main %d aliases a main port", slot, main)
		}
		if busy[slot] {
			t.Errorf("slot port %d for main %d is live-busy", slot, main)
		}
	}
	if len(result.PortMap) != len(ports) {
		t.Errorf("mapped %d ports, want %d", len(result.PortMap), len(ports))
	}
}

func TestLivePortsAreSkipped(t *testing.T) {
	ports := discovery.Ports{3000: "PORT"}
	busy := map[int]bool{3001: true, 3002: true}

	result, err := Allocate(ports, 1, func(p int) bool { return !busy[p] })
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if result.PortMap[3000] != 3003 {
		t.Errorf("3000 → %d, want 3003", result.PortMap[3000])
	}
	if result.Allocations[0].Probes != 2 {
		t.Errorf("probes = %d, want 2", result.Allocations[0].Probes)
	}
}

func TestDeterministicOrder(t *testing.T) {
	ports := discovery.Ports{3002: "C", 3000: "A", 3001: "B"}

	a, err := Allocate(ports, 1, allFree)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Allocate(ports, 1, allFree)
	if err != nil {
		t.Fatal(err)
	}
	for main := range ports {
		if a.PortMap[main] != b.PortMap[main] {
			t.Errorf("port %d allocated differently across runs: %d vs %d",
				main, a.PortMap[main], b.PortMap[main])
		}
	}
	// Ascending visit order.
	for i := 1; i < len(a.Allocations); i++ {
		if a.Allocations[i].Main < a.Allocations[i-1].Main {
			t.Error("allocations not in ascending main-port order")
		}
	}
}

func TestExhaustedProbesIsFatal(t *testing.T) {
	ports := discovery.Ports{3000: "PORT"}

	_, err := Allocate(ports, 1, func(int) bool { return false })
	if err == nil {
		t.Fatal("expected error when no port can be bound, got nil")
	}
}

func TestNamedDiscriminator(t *testing.T) {
	a := NamedDiscriminator("feature-auth")
	b := NamedDiscriminator("feature-auth")
	if a != b {
		t.Errorf("discriminator not stable: %d vs %d", a, b)
	}
	if a < 10 || a > 99 {
		t.Errorf("discriminator %d outside [10, 99]", a)
	}
}
