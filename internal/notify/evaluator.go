package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gochang/agri-notify/internal/ctxutil"
	"github.com/gochang/agri-notify/internal/dispatch"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/profile"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/sentry"
	"github.com/gochang/agri-notify/internal/state"
	"github.com/gochang/agri-notify/internal/timeutil"
)

// Failure stages reported to logs, metrics and Sentry.
const (
	StageStateRead  = "state_read"
	StageDispatch   = "dispatch"
	StageStateWrite = "state_write"
)

// TriggerTest labels reminders sent on demand for one project.
const TriggerTest Trigger = "test"

// ProjectSource provides the catalog.
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
}

// ProfileSource returns the onboarding profile.
type ProfileSource interface {
	Load(ctx context.Context) (profile.Profile, error)
}

// Options tunes an Evaluator. Zero values take defaults.
type Options struct {
	DeadlineDays int
	// RequireOptIn limits reminders to projects the user subscribed to.
	RequireOptIn bool
	// Interests, when set, limits reminders to the categories picked during
	// onboarding. A profile without interests does not filter.
	Interests ProfileSource
	Location  *time.Location
	Clock     timeutil.Clock
}

// Result summarizes one run.
type Result struct {
	RunID     string          `json:"runId"`
	Date      string          `json:"date"`
	Evaluated int             `json:"evaluated"`
	Sent      int             `json:"sent"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	ByTrigger map[Trigger]int `json:"byTrigger"`
}

// Evaluator runs the rules over the catalog and dispatches due reminders.
type Evaluator struct {
	projects   ProjectSource
	tracker    *state.Tracker
	dispatcher dispatch.Dispatcher
	metrics    *metrics.Metrics
	log        *logger.Logger
	opts       Options
}

// NewEvaluator creates an Evaluator. m may be nil.
func NewEvaluator(projects ProjectSource, tracker *state.Tracker, dispatcher dispatch.Dispatcher, m *metrics.Metrics, log *logger.Logger, opts Options) *Evaluator {
	if opts.DeadlineDays <= 0 {
		opts.DeadlineDays = DefaultDeadlineDays
	}
	if opts.Location == nil {
		opts.Location = timeutil.Seoul()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock
	}
	return &Evaluator{
		projects:   projects,
		tracker:    tracker,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log.WithModule("notify"),
		opts:       opts,
	}
}

// Run evaluates every project once. Failures for a single project are
// logged, reported and counted, and the run continues. An error is returned
// only when the run as a whole could not proceed.
func (e *Evaluator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = ctxutil.WithRunID(ctx, runID)

	today := timeutil.Today(e.opts.Clock(), e.opts.Location)
	res := Result{RunID: runID, Date: project.FormatDate(today), ByTrigger: map[Trigger]int{}}

	projects, err := e.projects.ListProjects(ctx)
	if err != nil {
		e.recordRun("error", start)
		return res, fmt.Errorf("notify: list projects: %w", err)
	}

	var optedIn map[string]bool
	if e.opts.RequireOptIn {
		ids, err := e.tracker.OptedInProjects(ctx)
		if err != nil {
			e.recordRun("error", start)
			return res, fmt.Errorf("notify: list opt-ins: %w", err)
		}
		optedIn = make(map[string]bool, len(ids))
		for _, id := range ids {
			optedIn[id] = true
		}
	}

	wants := e.interests(ctx)

	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			e.recordRun("error", start)
			return res, err
		}
		if optedIn != nil && !optedIn[p.ID] {
			res.Skipped++
			continue
		}
		if !wants(p.Category) {
			res.Skipped++
			continue
		}
		res.Evaluated++

		trigger, delivered, err := e.evaluate(ctx, p, today)
		if delivered {
			res.Sent++
			res.ByTrigger[trigger]++
		}
		if err != nil {
			res.Failed++
		}
	}

	e.recordRun("success", start)
	e.log.WithFields(map[string]any{
		"date":      res.Date,
		"evaluated": res.Evaluated,
		"sent":      res.Sent,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	}).InfoContext(ctx, "Evaluation run finished")
	return res, nil
}

// interests returns the category filter for this run. An unreadable profile
// is logged and does not filter, so a storage hiccup never mutes reminders.
func (e *Evaluator) interests(ctx context.Context) func(project.Category) bool {
	all := func(project.Category) bool { return true }
	if e.opts.Interests == nil {
		return all
	}
	prof, err := e.opts.Interests.Load(ctx)
	if err != nil {
		e.log.WithError(err).WarnContext(ctx, "Failed to load profile, reminding about every category")
		return all
	}
	if len(prof.Interests) == 0 {
		return all
	}
	return prof.Wants
}

// evaluate handles one project. delivered reports whether a reminder went
// out, even if recording it afterwards failed.
func (e *Evaluator) evaluate(ctx context.Context, p project.Project, today time.Time) (Trigger, bool, error) {
	if !p.IsActive || !p.HasNotificationDate() {
		return TriggerNone, false, nil
	}
	ctx = ctxutil.WithProjectID(ctx, p.ID)

	history, endKey, err := e.history(ctx, p)
	if err != nil {
		e.fail(ctx, p, StageStateRead, err)
		return TriggerNone, false, err
	}

	d := Decide(p, today, history, e.opts.DeadlineDays)
	if !d.Due() {
		return TriggerNone, false, nil
	}

	r := BuildReminder(p, d, today)
	if err := e.dispatcher.Dispatch(ctx, r); err != nil {
		e.fail(ctx, p, StageDispatch, err)
		return d.Trigger, false, err
	}
	if e.metrics != nil {
		e.metrics.RecordReminderSent(string(d.Trigger), string(r.Channel))
	}
	e.log.WithField("trigger", string(d.Trigger)).WithField("channel", string(r.Channel)).
		InfoContext(ctx, "Reminder sent")

	if d.Trigger == TriggerDeadline {
		err = e.tracker.MarkDeadlineSent(ctx, p.ID, endKey)
	} else {
		err = e.tracker.MarkNotified(ctx, p.ID, r.Date)
	}
	if err != nil {
		e.fail(ctx, p, StageStateWrite, err)
		return d.Trigger, true, err
	}
	return d.Trigger, true, nil
}

func (e *Evaluator) history(ctx context.Context, p project.Project) (History, string, error) {
	last, err := e.tracker.LastNotified(ctx, p.ID)
	if err != nil {
		return History{}, "", err
	}
	endKey := PeriodEndKey(p)
	sent := false
	if endKey != "" {
		if sent, err = e.tracker.DeadlineSent(ctx, p.ID, endKey); err != nil {
			return History{}, "", err
		}
	}
	return History{LastNotified: last, DeadlineSent: sent}, endKey, nil
}

func (e *Evaluator) fail(ctx context.Context, p project.Project, stage string, err error) {
	e.log.WithError(err).WithField("stage", stage).ErrorContext(ctx, "Reminder evaluation failed for project")
	sentry.CaptureWithTags(ctx, err, map[string]string{"project_id": p.ID, "stage": stage})
	if e.metrics != nil {
		e.metrics.RecordEvaluationFailure(stage)
	}
}

func (e *Evaluator) recordRun(status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordEvaluationRun(status, time.Since(start).Seconds())
	}
}

// SendTest sends the scheduled-style reminder for one project right away,
// ignoring the rules and without recording it as sent.
func (e *Evaluator) SendTest(ctx context.Context, projectID string) (dispatch.Reminder, error) {
	p, err := e.projects.GetProject(ctx, projectID)
	if err != nil {
		return dispatch.Reminder{}, err
	}
	ctx = ctxutil.WithProjectID(ctx, p.ID)

	r := BuildReminder(p, Decision{Trigger: TriggerScheduled}, timeutil.Today(e.opts.Clock(), e.opts.Location))
	r.Kind = string(TriggerTest)
	r.Nonce = uuid.NewString()
	if err := e.dispatcher.Dispatch(ctx, r); err != nil {
		return r, fmt.Errorf("notify: test reminder: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordReminderSent(string(TriggerTest), string(r.Channel))
	}
	return r, nil
}
