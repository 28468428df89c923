package safety

import "testing"

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  State
	}{
		{"clean", Facts{}, Clean},
		{"locked wins over everything", Facts{Locked: true, Dirty: true, Unpushed: true, Unmerged: true}, Locked},
		{"dirty wins over unmerged", Facts{Dirty: true, Unmerged: true}, Dirty},
		{"dirty wins over unpushed", Facts{Dirty: true, Unpushed: true}, Dirty},
		{"unpushed wins over unmerged", Facts{Unpushed: true, Unmerged: true}, Unpushed},
		{"unmerged alone", Facts{Unmerged: true}, Unmerged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.facts); got != tt.want {
				t.Errorf("Classify(%+v) = %s, want %s", tt.facts, got, tt.want)
			}
		})
	}
}

func TestRemovable(t *testing.T) {
	tests := []struct {
		state State
		force bool
		want  bool
	}{
		{Clean, false, true},
		{Clean, true, true},
		{Unmerged, false, false},
		{Unmerged, true, true},
		{Unpushed, false, false},
		{Unpushed, true, true},
		{Dirty, true, false},
		{Locked, true, false},
	}
	for _, tt := range tests {
		if got := Removable(tt.state, tt.force); got != tt.want {
			t.Errorf("Removable(%s, force=%v) = %v, want %v", tt.state, tt.force, got, tt.want)
		}
	}
}
