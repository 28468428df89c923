package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// postgresReadyTimeout bounds the per-container readiness poll.
const postgresReadyTimeout = 30 * time.Second

// PostgresConfig is the database connection settings read from a
// container-definition file.
type PostgresConfig struct {
	User     string
	Password string
	DB       string
}

// DefaultPostgresConfig is used for any setting the compose file omits.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{User: "postgres", Password: "postgres", DB: "postgres"}
}

// DockerService starts and stops per-slot container sets and clones
// databases from the source environment.
type DockerService struct {
	scan *ScanService
}

// NewDockerService creates a new DockerService.
func NewDockerService(scan *ScanService) *DockerService {
	return &DockerService{scan: scan}
}

type composeDoc struct {
	Services map[string]struct {
		ContainerName string    `yaml:"container_name"`
		Environment   yaml.Node `yaml:"environment"`
	} `yaml:"services"`
}

// ParseComposePostgres extracts POSTGRES_USER/PASSWORD/DB from compose
// file content. The YAML form is tried first; content that is not valid
// YAML falls back to a line scan so a half-templated file still yields
// usable settings.
func ParseComposePostgres(content string) PostgresConfig {
	cfg := DefaultPostgresConfig()

	var doc composeDoc
	if err := yaml.Unmarshal([]byte(content), &doc); err == nil && len(doc.Services) > 0 {
		found := false
		for _, svc := range doc.Services {
			for key, val := range envEntries(svc.Environment) {
				switch key {
				case "POSTGRES_USER":
					cfg.User, found = val, true
				case "POSTGRES_PASSWORD":
					cfg.Password, found = val, true
				case "POSTGRES_DB":
					cfg.DB, found = val, true
				}
			}
		}
		if found {
			return cfg
		}
	}

	// Line-scan fallback.
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for prefix, target := range map[string]*string{
			"POSTGRES_USER:":     &cfg.User,
			"POSTGRES_PASSWORD:": &cfg.Password,
			"POSTGRES_DB:":       &cfg.DB,
		} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				if v := strings.Trim(rest, ` "'`); v != "" {
					*target = v
				}
			}
		}
	}
	return cfg
}

// envEntries normalizes a compose environment node, which is either a
// mapping or a list of KEY=VALUE strings.
func envEntries(node yaml.Node) map[string]string {
	out := make(map[string]string)
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out[node.Content[i].Value] = node.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if k, v, ok := strings.Cut(item.Value, "="); ok {
				out[k] = v
			}
		}
	}
	return out
}

// ReadEnvPort reads an integer variable from an env file, 0 if absent.
func ReadEnvPort(path, varName string) int {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(varName) + `=["']?(\d+)["']?`)
	if m := re.FindStringSubmatch(string(content)); len(m) > 1 {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// envPortNear looks for POSTGRES_PORT in the most specific env file next
// to a compose file.
func envPortNear(dir string) int {
	for _, name := range []string{".env.local", ".env"} {
		if port := ReadEnvPort(filepath.Join(dir, name), "POSTGRES_PORT"); port > 0 {
			return port
		}
	}
	return 0
}

// ComposeUp starts the container set in dir, passing the most specific
// env file present.
func (s *DockerService) ComposeUp(dir string) error {
	for _, envFile := range []string{".env.local", ".env"} {
		if _, err := os.Stat(filepath.Join(dir, envFile)); err == nil {
			cmd := exec.Command("docker", "compose", "--env-file", envFile, "up", "-d")
			cmd.Dir = dir
			if cmd.Run() == nil {
				return nil
			}
		}
	}
	cmd := exec.Command("docker", "compose", "up", "-d")
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker compose up in %s: %w", dir, err)
	}
	return nil
}

// ComposeDownAll stops every container set under slotPath and removes
// their volumes.
func (s *DockerService) ComposeDownAll(slotPath string) {
	files, err := s.scan.ComposeFiles(slotPath)
	if err != nil {
		return
	}
	for _, file := range files {
		cmd := exec.Command("docker", "compose", "down", "-v")
		cmd.Dir = filepath.Dir(file)
		_ = cmd.Run()
	}
}

// IsPostgresReady runs a lightweight SELECT 1 against the port.
func (s *DockerService) IsPostgresReady(port int, cfg PostgresConfig) bool {
	cmd := exec.Command("psql", "-h", "localhost", "-p", strconv.Itoa(port),
		"-U", cfg.User, "-c", "SELECT 1", cfg.DB)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.Password)
	return cmd.Run() == nil
}

// WaitForPostgres polls once per second until the database answers or
// the timeout expires.
func (s *DockerService) WaitForPostgres(port int, cfg PostgresConfig) bool {
	deadline := time.Now().Add(postgresReadyTimeout)
	for time.Now().Before(deadline) {
		if s.IsPostgresReady(port, cfg) {
			return true
		}
		time.Sleep(time.Second)
	}
	return false
}

// CloneDatabase copies schema+data from the source database into the
// slot's database. Other connections to the target are terminated and
// the target is recreated first so the dump lands on a clean database.
func (s *DockerService) CloneDatabase(srcPort, dstPort int, cfg PostgresConfig) error {
	admin := func(sql string) error {
		cmd := exec.Command("psql", "-h", "localhost", "-p", strconv.Itoa(dstPort),
			"-U", cfg.User, "-d", "postgres", "-c", sql)
		cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.Password)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("psql %q on port %d: %w", sql, dstPort, err)
		}
		return nil
	}

	terminate := fmt.Sprintf(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s' AND pid <> pg_backend_pid()",
		cfg.DB)
	if err := admin(terminate); err != nil {
		return fmt.Errorf("failed to terminate connections: %w", err)
	}
	if err := admin(fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, cfg.DB)); err != nil {
		return fmt.Errorf("failed to drop target database: %w", err)
	}
	if err := admin(fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DB)); err != nil {
		return fmt.Errorf("failed to create target database: %w", err)
	}

	// The dump must stream through a single shell pipeline: driving both
	// ends from in-process pipes deadlocks once the dump outgrows the
	// pipe buffer.
	pipeline := fmt.Sprintf(
		"pg_dump -h localhost -p %d -U %s %s | psql -h localhost -p %d -U %s -q %s",
		srcPort, cfg.User, cfg.DB, dstPort, cfg.User, cfg.DB)
	cmd := exec.Command("sh", "-c", pipeline)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.Password)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dump pipeline failed: %w", err)
	}
	return nil
}

// ProvisionResult reports one compose file's orchestration outcome.
type ProvisionResult struct {
	ComposeDir string
	Started    bool
	Cloned     bool
	Err        error
}

// ProvisionDatabases starts every container set under the slot and
// clones the source database into each one whose source counterpart is
// reachable. With startContainers false only the clone runs (db-sync).
// A failure in one compose dir never aborts the others.
func (s *DockerService) ProvisionDatabases(projectPath, slotPath string, startContainers bool) []ProvisionResult {
	files, err := s.scan.ComposeFiles(slotPath)
	if err != nil || len(files) == 0 {
		return nil
	}

	var results []ProvisionResult
	for _, composeFile := range files {
		composeDir := filepath.Dir(composeFile)
		res := ProvisionResult{ComposeDir: composeDir}

		content, readErr := os.ReadFile(composeFile)
		if readErr != nil {
			res.Err = fmt.Errorf("failed to read compose file: %w", readErr)
			results = append(results, res)
			continue
		}
		cfg := ParseComposePostgres(string(content))

		slotPgPort := envPortNear(composeDir)
		if slotPgPort == 0 {
			res.Err = fmt.Errorf("no POSTGRES_PORT near %s, skipping", filepath.Base(composeDir))
			results = append(results, res)
			continue
		}

		if startContainers {
			if err := s.ComposeUp(composeDir); err != nil {
				res.Err = err
				results = append(results, res)
				continue
			}
			res.Started = true
		}

		if !s.WaitForPostgres(slotPgPort, cfg) {
			res.Err = fmt.Errorf("postgres on port %d not ready within %s", slotPgPort, postgresReadyTimeout)
			results = append(results, res)
			continue
		}

		mainComposeDir := strings.Replace(composeDir, slotPath, projectPath, 1)
		mainPgPort := envPortNear(mainComposeDir)
		if mainPgPort == 0 || !s.IsPostgresReady(mainPgPort, cfg) {
			res.Err = fmt.Errorf("source database not reachable on port %d, skipping clone", mainPgPort)
			results = append(results, res)
			continue
		}

		if err := s.CloneDatabase(mainPgPort, slotPgPort, cfg); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Cloned = true
		results = append(results, res)
	}
	return results
}

// Container is one live container from the runtime.
type Container struct {
	Name   string
	Image  string
	Status string
	Ports  string
}

// LiveContainers snapshots running containers. Errors yield an empty
// snapshot; the runtime being down just means nothing is running.
func (s *DockerService) LiveContainers() []Container {
	out, err := exec.Command("docker", "ps", "--format", "json").Output()
	if err != nil {
		return nil
	}
	var containers []Container
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		var row struct {
			Names  string `json:"Names"`
			Image  string `json:"Image"`
			Status string `json:"Status"`
			Ports  string `json:"Ports"`
		}
		if json.Unmarshal([]byte(line), &row) != nil {
			continue
		}
		containers = append(containers, Container{
			Name: row.Names, Image: row.Image, Status: row.Status, Ports: row.Ports,
		})
	}
	return containers
}
