package rewrite

import (
	"strings"
	"testing"
)

func TestResourceName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"app-1", "app-1"},
		{"MyApp-2", "myapp-2"},
		{"app_web.3", "app-web-3"},
		{"feature auth", "feature-auth"},
	}
	for _, tt := range tests {
		if got := ResourceName(tt.in); got != tt.want {
			t.Errorf("ResourceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvContentReplacesPorts(t *testing.T) {
	content := `PORT=3000
API_PORT="3000"
CACHE_PORT='6379'
DATABASE_URL=postgres://u:p@localhost:5432/app
`
	portMap := map[int]int{3000: 3001, 5432: 5433, 6379: 6380}

	got := EnvContent(content, portMap, "app-1")

	for _, want := range []string{
		"PORT=3001",
		`API_PORT="3001"`,
		"CACHE_PORT='6380'",
		"localhost:5433",
		"COMPOSE_PROJECT_NAME=app-1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestEnvContentUpsertsComposeProjectName(t *testing.T) {
	// Existing assignment is replaced in place, not duplicated.
	content := "COMPOSE_PROJECT_NAME=app\nPORT=3000\n"
	got := EnvContent(content, nil, "app-2")
	if strings.Count(got, "COMPOSE_PROJECT_NAME=") != 1 {
		t.Errorf("expected exactly one COMPOSE_PROJECT_NAME line:\n%s", got)
	}
	if !strings.Contains(got, "COMPOSE_PROJECT_NAME=app-2") {
		t.Errorf("assignment not updated:\n%s", got)
	}

	// Missing assignment is inserted at the top.
	got = EnvContent("PORT=3000\n", nil, "app-2")
	if !strings.HasPrefix(got, "COMPOSE_PROJECT_NAME=app-2\n") {
		t.Errorf("assignment not inserted first:\n%s", got)
	}
}

func TestEnvContentNoCascadingReplacement(t *testing.T) {
	// 3000→3001 and 3001→3002 in one batch: the rewritten =3001 must not
	// be re-matched by the second mapping.
	content := "A_PORT=3000\nB_PORT=3001\n"
	portMap := map[int]int{3000: 3002, 3001: 3003}

	got := EnvContent(content, portMap, "app-1")
	if !strings.Contains(got, "A_PORT=3002") {
		t.Errorf("A_PORT not mapped:\n%s", got)
	}
	if !strings.Contains(got, "B_PORT=3003") {
		t.Errorf("B_PORT not mapped (cascade?):\n%s", got)
	}
}

func TestEnvContentIdempotent(t *testing.T) {
	content := "PORT=3000\nURL=http://localhost:3000\n"
	portMap := map[int]int{3000: 3001}

	first := EnvContent(content, portMap, "app-1")
	second := EnvContent(first, portMap, "app-1")
	if first != second {
		t.Errorf("second rewrite produced a diff:\n%s\nvs\n%s", first, second)
	}
}

func TestComposeContentRewritesContainerName(t *testing.T) {
	content := `services:
  postgres:
    image: postgres:16
    container_name: myapp-db
  cache:
    container_name: myapp-redis
`
	got := ComposeContent(content, "myapp-1")

	if !strings.Contains(got, "container_name: ${COMPOSE_PROJECT_NAME:-myapp-1}-db") {
		t.Errorf("db container name not parameterized:\n%s", got)
	}
	if !strings.Contains(got, "container_name: ${COMPOSE_PROJECT_NAME:-myapp-1}-redis") {
		t.Errorf("redis container name not parameterized:\n%s", got)
	}
}

func TestComposeContentDefaultSuffix(t *testing.T) {
	got := ComposeContent("    container_name: postgres\n", "app-1")
	if !strings.Contains(got, "${COMPOSE_PROJECT_NAME:-app-1}-db") {
		t.Errorf("single-token name should get db suffix:\n%s", got)
	}
}

func TestComposeContentIdempotent(t *testing.T) {
	content := "    container_name: myapp-db\n"

	first := ComposeContent(content, "app-1")
	second := ComposeContent(first, "app-1")
	if first != second {
		t.Errorf("second rewrite produced a diff:\n%q\nvs\n%q", first, second)
	}
}
