package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/example/slot/internal/app"
)

func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return dir, nil
}

func okMark() string   { return color.New(color.FgGreen).Sprint("✓") }
func warnMark() string { return color.New(color.FgYellow).Sprint("!") }
func failMark() string { return color.New(color.FgRed).Sprint("✗") }

// printVerifyReport renders a reconcile report and reports whether it
// was error-free.
func printVerifyReport(report *app.VerifyReport) bool {
	for _, c := range report.Checks {
		fmt.Printf("%s %s\n", okMark(), c)
	}
	for _, w := range report.Warnings {
		fmt.Printf("%s %s\n", warnMark(), w)
	}
	for _, e := range report.Errors {
		fmt.Printf("%s %s\n", failMark(), e)
	}
	return len(report.Errors) == 0
}

func identifierArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
