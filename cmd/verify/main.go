// Command verify checks a catalog spreadsheet before it is imported. Nothing
// is written to storage. The exit code is 1 when any check fails.
//
// Usage:
//
//	verify path/to/catalog.xlsx
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/tabular"
)

type verifyResult struct {
	name    string
	passed  bool
	message string
}

func main() {
	if len(os.Args) != 2 {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <file.xlsx|file.csv>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Stdout))
}

func run(path string, out io.Writer) int {
	_, _ = fmt.Fprintln(out, "🔍 Catalog Verification Tool")
	_, _ = fmt.Fprintln(out, "============================")

	f, err := os.Open(path)
	if err != nil {
		_, _ = fmt.Fprintf(out, "❌ %v\n", err)
		return 1
	}
	defer f.Close()

	res, err := tabular.ImportFile(filepath.Base(path), f)
	if err != nil {
		_, _ = fmt.Fprintf(out, "❌ %v\n", err)
		return 1
	}

	results := verify(res)

	_, _ = fmt.Fprintln(out, "\n📊 Verification Results:")
	_, _ = fmt.Fprintln(out, "========================")

	failed := 0
	for _, r := range results {
		status := "✅"
		if !r.passed {
			status = "❌"
			failed++
		}
		_, _ = fmt.Fprintf(out, "%s %s: %s\n", status, r.name, r.message)
	}
	_, _ = fmt.Fprintf(out, "\n📈 Summary: %d passed, %d failed\n", len(results)-failed, failed)

	if failed > 0 {
		return 1
	}
	return 0
}

func verify(res tabular.Result) []verifyResult {
	results := []verifyResult{
		{
			name:    "Valid Rows",
			passed:  len(res.Projects) > 0,
			message: fmt.Sprintf("%d of %d data rows readable", len(res.Projects), res.DataRows),
		},
	}

	skipped := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, fmt.Sprintf("row %d (%s)", s.Row, s.Reason))
	}
	results = append(results, verifyResult{
		name:    "Skipped Rows",
		passed:  len(skipped) == 0,
		message: joinOrNone(skipped),
	})

	return append(results,
		verifyUniqueIDs(res.Projects),
		verifyCategories(res.Projects),
		verifyNotificationDates(res.Projects),
		verifyPeriods(res.Projects),
	)
}

func verifyUniqueIDs(projects []project.Project) verifyResult {
	seen := make(map[string]int, len(projects))
	var dups []string
	for _, p := range projects {
		seen[p.ID]++
		if seen[p.ID] == 2 {
			dups = append(dups, p.ID)
		}
	}
	return verifyResult{
		name:    "Unique IDs",
		passed:  len(dups) == 0,
		message: "duplicates: " + joinOrNone(dups),
	}
}

func verifyCategories(projects []project.Project) verifyResult {
	var unknown []string
	for _, p := range projects {
		if !p.Category.Known() {
			unknown = append(unknown, fmt.Sprintf("%s=%q", p.ID, p.Category))
		}
	}
	return verifyResult{
		name:    "Categories",
		passed:  len(unknown) == 0,
		message: "unknown: " + joinOrNone(unknown),
	}
}

func verifyNotificationDates(projects []project.Project) verifyResult {
	var bad []string
	missing := 0
	for _, p := range projects {
		if strings.TrimSpace(p.NotificationDate) == "" {
			missing++
			continue
		}
		if _, err := project.ParseDate(p.NotificationDate); err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", p.ID, p.NotificationDate))
		}
	}
	return verifyResult{
		name:    "Notification Dates",
		passed:  len(bad) == 0,
		message: fmt.Sprintf("invalid: %s; %d without date", joinOrNone(bad), missing),
	}
}

// Periods whose end cannot be parsed are reported but do not fail, since
// the bundled samples use the short "MM.DD" end form.
func verifyPeriods(projects []project.Project) verifyResult {
	var unparsed []string
	for _, p := range projects {
		period, ok := p.Period()
		if !ok {
			unparsed = append(unparsed, p.ID)
			continue
		}
		if _, err := period.StartDate(); err != nil {
			unparsed = append(unparsed, p.ID)
		}
	}
	return verifyResult{
		name:    "Application Periods",
		passed:  true,
		message: "without parseable start: " + joinOrNone(unparsed),
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
