// Package safety classifies working copies for deletion. The state is
// computed from observed facts only; observation happens elsewhere so the
// priority rule stays a pure decision.
package safety

// State is the deletion-safety classification of one working copy.
type State string

const (
	// Locked: an explicit flag is set; never removed automatically.
	Locked State = "locked"
	// Dirty: uncommitted changes present; never removed automatically.
	Dirty State = "dirty"
	// Unpushed: commits not present on the remote tracking branch.
	Unpushed State = "unpushed"
	// Unmerged: commits not reachable from the project's main branch.
	Unmerged State = "unmerged"
	// Clean: eligible for unattended deletion.
	Clean State = "clean"
)

// Facts are the observed inputs to classification.
type Facts struct {
	Locked   bool
	Dirty    bool
	Unpushed bool
	Unmerged bool
}

// Classify applies the strict priority order:
// locked > dirty > unpushed > unmerged > clean.
func Classify(f Facts) State {
	switch {
	case f.Locked:
		return Locked
	case f.Dirty:
		return Dirty
	case f.Unpushed:
		return Unpushed
	case f.Unmerged:
		return Unmerged
	default:
		return Clean
	}
}

// Removable reports whether a working copy in this state may be removed,
// given whether the caller passed the unmerged override. Locked and dirty
// copies are never removable here; unlocking and committing are the only
// ways out.
func Removable(s State, force bool) bool {
	switch s {
	case Clean:
		return true
	case Unmerged, Unpushed:
		return force
	default:
		return false
	}
}
