package discovery

import (
	"reflect"
	"testing"
)

func TestMergeEnvAssignments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Ports
	}{
		{"bare assignment", "PORT=3000\n", Ports{3000: "PORT"}},
		{"prefixed assignment", "POSTGRES_PORT=5432\n", Ports{5432: "POSTGRES_PORT"}},
		{"quoted value", `API_PORT="4000"` + "\n", Ports{4000: "API_PORT"}},
		{"single quoted value", "API_PORT='4000'\n", Ports{4000: "API_PORT"}},
		{"reserved port excluded", "SSH_PORT=22\nWEB_PORT=80\n", Ports{}},
		{"boundary excluded", "LOW_PORT=1000\n", Ports{}},
		{"comment skipped", "# PORT=3000\n", Ports{}},
		{"lowercase not a port var", "port=3000\n", Ports{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ports{}
			Merge(got, tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestMergeLocalhostReferences(t *testing.T) {
	got := Ports{}
	Merge(got, "DATABASE_URL=postgres://u:p@localhost:5432/app\nAPI_URL=http://localhost:3000/api\n")

	want := Ports{5432: "URL", 3000: "URL"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMergePortFlags(t *testing.T) {
	got := Ports{}
	Merge(got, `    "dev": "next dev -p 3100",`+"\n")
	if got[3100] != "FLAG" {
		t.Errorf("got %v, want 3100 labeled FLAG", got)
	}
}

func TestFirstLabelWins(t *testing.T) {
	got := Ports{}
	Merge(got, "WEB_PORT=3000\n")
	Merge(got, "URL=http://localhost:3000\n")
	if got[3000] != "WEB_PORT" {
		t.Errorf("label = %q, want WEB_PORT", got[3000])
	}

	// Reverse order: URL sighting first.
	got = Ports{}
	Merge(got, "URL=http://localhost:3000\n")
	Merge(got, "WEB_PORT=3000\n")
	if got[3000] != "URL" {
		t.Errorf("label = %q, want URL", got[3000])
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	content := "PORT=3000\nPOSTGRES_PORT=5432\nAPI=http://localhost:8080\n"

	once := Ports{}
	Merge(once, content)

	twice := Ports{}
	Merge(twice, content)
	Merge(twice, content)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("re-merge changed result: %v vs %v", once, twice)
	}
}

func TestIsCandidateFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".env", true},
		{".env.local", true},
		{"app.env", true},
		{"package.json", true},
		{"Makefile", true},
		{"main.go", false},
		{"docker-compose.yml", false},
	}
	for _, tt := range tests {
		if got := IsCandidateFile(tt.name); got != tt.want {
			t.Errorf("IsCandidateFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSkipDir(t *testing.T) {
	for _, dir := range []string{"node_modules", ".git", "dist", "vendor"} {
		if !SkipDir(dir) {
			t.Errorf("SkipDir(%q) = false, want true", dir)
		}
	}
	if SkipDir("src") {
		t.Error("SkipDir(src) = true, want false")
	}
}
