// Command notify runs one reminder evaluation and exits. It is meant for
// cron-style deployments that do not keep the server running. The exit code
// is non-zero when the run could not complete.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gochang/agri-notify/internal/app"
	"github.com/gochang/agri-notify/internal/config"
	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/notify"
	"github.com/gochang/agri-notify/internal/sentry"
)

var dryRunFlag = flag.Bool("dry-run", false, "Log reminders instead of sending them")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadForMode(config.ToolMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *dryRunFlag {
		cfg.Notify.DryRun = true
	}

	log := app.NewLogger(cfg, "agri-notify-cli")
	defer func() { _ = log.Shutdown(context.Background()) }()
	app.InitSentry(cfg, log)
	defer sentry.Flush(config.GracefulShutdown)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, nil, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize")
		return 1
	}
	defer func() { _ = core.Close() }()

	if cfg.SeedSamples {
		if _, err := core.Catalog.Seed(ctx); err != nil {
			log.WithError(err).Error("Failed to seed catalog")
			return 1
		}
	}

	job := notify.NewJob(core.Evaluator, core.Locker(), nil, log)
	res, err := job.Trigger(ctx)
	if errors.Is(err, apperrors.ErrLockHeld) {
		fmt.Println("⏭️  Another instance is evaluating, skipped")
		return 0
	}
	if err != nil {
		log.WithError(err).Error("Evaluation failed")
		sentry.CaptureWithTags(ctx, err, map[string]string{"job": "notify_cli"})
		return 1
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	return 0
}
