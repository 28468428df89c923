package app

import (
	"os"
	"os/exec"
)

// newInheritedCommand builds a command that runs in dir with the
// caller's terminal attached. Used for interactive tools (gh, claude)
// that need a real stdin.
func newInheritedCommand(dir, name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// RunInteractive runs an interactive command in dir, inheriting the
// caller's terminal. Blocks until the command exits.
func RunInteractive(dir, name string, args ...string) error {
	return newInheritedCommand(dir, name, args...).Run()
}
