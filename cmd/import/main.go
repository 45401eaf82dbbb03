// Command import replaces the project catalog with the rows of an .xlsx or
// .csv file.
//
// Usage:
//
//	import path/to/catalog.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gochang/agri-notify/internal/app"
	"github.com/gochang/agri-notify/internal/config"
	apperrors "github.com/gochang/agri-notify/internal/errors"
)

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <file.xlsx|file.csv>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0)))
}

func run(path string) int {
	cfg, err := config.LoadForMode(config.ToolMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	log := app.NewLogger(cfg, "agri-notify-cli")
	defer func() { _ = log.Shutdown(context.Background()) }()

	data, err := os.ReadFile(path)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ImportTimeout)
	defer cancel()

	core, err := app.NewCore(ctx, cfg, nil, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize")
		return 1
	}
	defer func() { _ = core.Close() }()

	rep, err := core.Catalog.Import(ctx, filepath.Base(path), data)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ %s\n", apperrors.GetUserMessage(err))
		return 1
	}

	fmt.Printf("✅ Imported %d of %d rows from %s (%s)\n", rep.Imported, rep.DataRows, path, rep.Format)
	for _, s := range rep.Skipped {
		fmt.Printf("   ⚠️  row %d skipped: %s\n", s.Row, s.Reason)
	}
	if rep.ArchiveKey != "" {
		fmt.Printf("   📦 archived as %s\n", rep.ArchiveKey)
	}
	return 0
}
