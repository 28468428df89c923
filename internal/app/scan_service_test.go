package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanPortsAcrossTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "PORT=3000\nPOSTGRES_PORT=5432\n")
	writeFile(t, root, "api/.env.local", "REDIS_URL=redis://localhost:6379\n")
	writeFile(t, root, "web/package.json", `{"scripts": {"dev": "next dev -p 3100"}}`)
	// Excluded locations and files.
	writeFile(t, root, "node_modules/pkg/.env", "EVIL_PORT=9999\n")
	writeFile(t, root, "api/main.go", "// PORT=7777\n")

	svc := NewScanService()
	ports, err := svc.ScanPorts(root)
	if err != nil {
		t.Fatalf("ScanPorts() error = %v", err)
	}

	want := map[int]string{3000: "PORT", 5432: "POSTGRES_PORT", 6379: "URL", 3100: "FLAG"}
	if !reflect.DeepEqual(map[int]string(ports), want) {
		t.Errorf("ports = %v, want %v", ports, want)
	}
}

func TestScanPortsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "PORT=3000\nAPI=http://localhost:8080\n")

	svc := NewScanService()
	first, err := svc.ScanPorts(root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ScanPorts(root)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-scan changed result: %v vs %v", first, second)
	}
}

func TestEnvAndComposeFileListing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "PORT=3000\n")
	writeFile(t, root, "api/.env.local", "X=1\n")
	writeFile(t, root, "api/docker-compose.yml", "services: {}\n")
	writeFile(t, root, "node_modules/x/.env", "Y=2\n")

	svc := NewScanService()

	envs, err := svc.EnvFiles(root)
	if err != nil {
		t.Fatal(err)
	}
	wantEnvs := []string{".env", filepath.Join("api", ".env.local")}
	if !reflect.DeepEqual(envs, wantEnvs) {
		t.Errorf("env files = %v, want %v", envs, wantEnvs)
	}

	composes, err := svc.ComposeFiles(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(composes) != 1 || composes[0] != filepath.Join(root, "api", "docker-compose.yml") {
		t.Errorf("compose files = %v", composes)
	}
}

func TestLockfiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pnpm-lock.yaml", "lockfileVersion: 9\n")
	writeFile(t, root, "legacy/package-lock.json", "{}\n")

	svc := NewScanService()
	locks, err := svc.Lockfiles(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(locks) != 2 {
		t.Fatalf("lockfiles = %v, want 2 entries", locks)
	}
	if locks[0].Tool != "pnpm" && locks[1].Tool != "pnpm" {
		t.Errorf("pnpm lockfile not detected: %v", locks)
	}
}
