package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gochang/agri-notify/internal/catalog"
	"github.com/gochang/agri-notify/internal/config"
	"github.com/gochang/agri-notify/internal/dispatch"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/notify"
	"github.com/gochang/agri-notify/internal/profile"
	"github.com/gochang/agri-notify/internal/r2client"
	"github.com/gochang/agri-notify/internal/snapshot"
	"github.com/gochang/agri-notify/internal/state"
	"github.com/gochang/agri-notify/internal/storage"
)

// Core is the storage and reminder stack shared by the server and the
// command-line tools.
type Core struct {
	DB         *storage.DB
	State      state.Store
	Tracker    *state.Tracker
	Recipients *state.Recipients
	Catalog    *catalog.Service
	Evaluator  *notify.Evaluator
	Dispatcher dispatch.Dispatcher

	// R2 is nil when object storage is disabled, and so are the values
	// derived from it.
	R2        *r2client.Client
	Lock      *r2client.DistributedLock
	Snapshots *snapshot.Manager

	redis *redis.Client
	log   *logger.Logger
}

// NewCore opens storage and builds the reminder pipeline. m may be nil.
// When R2 is enabled and the database file is missing, the latest snapshot
// is restored first.
func NewCore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*Core, error) {
	c := &Core{log: log}

	var archive catalog.Archiver
	if cfg.R2.Enabled {
		client, err := r2client.New(ctx, r2client.Config{
			AccountID:   cfg.R2.AccountID,
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.BucketName,
		})
		if err != nil {
			return nil, fmt.Errorf("r2: %w", err)
		}
		c.R2 = client
		c.Lock = r2client.NewDistributedLock(client, cfg.R2.LockKey, cfg.R2.LockTTL)
		c.Snapshots = snapshot.New(client, cfg.R2.SnapshotKey, cfg.DataDir, log)
		archive = r2client.NewArchive(client, cfg.R2.ArchivePrefix)

		restoreCtx, cancel := context.WithTimeout(ctx, config.R2Request*4)
		restored, err := c.Snapshots.RestoreIfMissing(restoreCtx, cfg.SQLitePath())
		cancel()
		if err != nil {
			log.WithError(err).Warn("Snapshot restore failed, starting with an empty database")
		} else if restored {
			log.WithField("key", cfg.R2.SnapshotKey).Info("Database restored from R2 snapshot")
		}
		log.WithField("bucket", client.Bucket()).Info("R2 object storage enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	c.DB = db
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	switch cfg.StateBackend {
	case config.StateBackendRedis:
		client, err := state.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state: %w", err)
		}
		c.redis = client
		c.State = state.NewRedisStore(client, state.DefaultRedisPrefix)
		log.Info("Reminder state stored in Redis")
	default:
		c.State = db
	}
	c.Tracker = state.NewTracker(c.State)
	c.Recipients = state.NewRecipients(c.State)

	c.Dispatcher, err = BuildDispatcher(ctx, cfg, c.Recipients, log)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	opts := notify.Options{
		DeadlineDays: cfg.Notify.DeadlineDays,
		RequireOptIn: cfg.Notify.RequireOptIn,
		Location:     cfg.Location(),
	}
	if cfg.Notify.FilterInterests {
		opts.Interests = profile.NewService(c.State)
	}
	c.Evaluator = notify.NewEvaluator(db, c.Tracker, c.Dispatcher, m, log, opts)
	c.Catalog = catalog.NewService(db, archive, c.Tracker, m, log)
	return c, nil
}

// Locker returns the cross-instance lock, or nil when R2 is disabled.
func (c *Core) Locker() notify.Locker {
	if c.Lock == nil {
		return nil
	}
	return c.Lock
}

// Ping checks the stores used for reminder bookkeeping.
func (c *Core) Ping(ctx context.Context) error {
	if err := c.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if rs, ok := c.State.(*state.RedisStore); ok {
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the state backend and the database.
func (c *Core) Close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

// BuildDispatcher assembles the delivery sinks from cfg. Dry runs and
// deployments without any channel configured log reminders instead.
func BuildDispatcher(ctx context.Context, cfg *config.Config, recipients dispatch.RecipientLister, log *logger.Logger) (dispatch.Dispatcher, error) {
	if cfg.Notify.DryRun {
		log.Info("Dry run enabled, reminders are only logged")
		return dispatch.NewLogDispatcher(log), nil
	}

	var sinks []dispatch.Dispatcher
	if cfg.HasLine() {
		api, err := dispatch.NewLineAPI(cfg.Line.ChannelToken, config.DispatchAttempt)
		if err != nil {
			return nil, fmt.Errorf("line: %w", err)
		}
		sinks = append(sinks, retrying(dispatch.NewLineDispatcher(api, cfg.Line.Delivery, recipients, log)))
		log.WithField("delivery", cfg.Line.Delivery).Info("LINE delivery enabled")
	}
	if cfg.HasFCM() {
		client, err := dispatch.NewFCMClient(ctx, cfg.FCM.CredentialsFile, cfg.FCM.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("fcm: %w", err)
		}
		sinks = append(sinks, retrying(dispatch.NewFCMDispatcher(client, cfg.FCM.TopicPrefix, log)))
		log.WithField("project_id", cfg.FCM.ProjectID).Info("FCM delivery enabled")
	}

	switch len(sinks) {
	case 0:
		log.Warn("No delivery channel configured, reminders are only logged")
		return dispatch.NewLogDispatcher(log), nil
	case 1:
		return sinks[0], nil
	default:
		return dispatch.NewMulti(sinks...), nil
	}
}

func retrying(d dispatch.Dispatcher) dispatch.Dispatcher {
	return dispatch.NewRetrying(d, config.DispatchMaxRetries, config.DispatchRetryInitial, config.DispatchAttempt)
}
