// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/metrics"
	"github-notification-sync/internal/model"
	"github-notification-sync/internal/reconcile"
)

// sinceOverlap re-reads a little history so threads updated while the
// previous cycle was running are not missed.
const sinceOverlap = time.Minute

// Source lists notification threads from GitHub.
type Source interface {
	ListNotifications(ctx context.Context, since time.Time, all bool) ([]*github.Notification, error)
	GetThread(ctx context.Context, threadID string) (*github.Notification, error)
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}

// Config controls the sync loop.
type Config struct {
	UserID      int64
	Interval    time.Duration
	Concurrency int
	IncludeRead bool
}

// Syncer orchestrates pulling the notification feed into the local store.
type Syncer struct {
	db      TxRunner
	source  Source
	engine  *reconcile.Engine
	metrics metrics.Recorder
	logger  *slog.Logger
	cfg     Config
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(db TxRunner, source Source, engine *reconcile.Engine, rec metrics.Recorder, logger *slog.Logger, cfg Config) (*Syncer, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("sync interval must be positive")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Syncer{
		db:      db,
		source:  source,
		engine:  engine,
		metrics: rec,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Start begins the continuous synchronization process.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.cfg.Interval.String(), "concurrency", s.cfg.Concurrency)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.RunSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// RunSyncCycle fetches every thread updated since the last stored update and
// reconciles each one concurrently. Failures are logged, never returned.
func (s *Syncer) RunSyncCycle(ctx context.Context) {
	logger := s.logger.With("run_id", uuid.NewString())
	logger.Info("Starting new sync cycle")

	since, err := s.since(ctx)
	if err != nil {
		logger.Error("Failed to determine sync start", "error", err)
		return
	}

	threads, err := s.source.ListNotifications(ctx, since, s.cfg.IncludeRead)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("Failed to list notifications", "error", err)
		}
		return
	}
	logger.Info("Fetched notifications", "count", len(threads), "since", since)

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, thread := range threads {
		thread := thread
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if _, err := s.syncThreadInTransaction(gctx, thread, true); err != nil && !errors.Is(err, context.Canceled) {
				failed.Add(1)
				logger.Error("Failed to sync notification", "thread_id", thread.GetID(), "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	s.metrics.RecordSyncCycle(len(threads), int(failed.Load()))
	logger.Info("Sync cycle finished", "threads", len(threads), "failed", failed.Load())
}

// SyncThread refreshes a single thread on demand. Unlike the periodic sweep
// it never reopens an archived thread.
func (s *Syncer) SyncThread(ctx context.Context, threadID string) (model.Notification, error) {
	thread, err := s.source.GetThread(ctx, threadID)
	if err != nil {
		return model.Notification{}, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}
	return s.syncThreadInTransaction(ctx, thread, false)
}

// syncThreadInTransaction wraps the sync logic for a single thread in a DB transaction.
func (s *Syncer) syncThreadInTransaction(ctx context.Context, thread *github.Notification, unarchive bool) (model.Notification, error) {
	var result model.Notification
	err := s.db.InTx(ctx, func(q database.Querier) error {
		var err error
		result, err = s.syncThread(ctx, q, thread, unarchive)
		return err
	})
	return result, err
}

// syncThread finds or initialises the local notification and applies the payload.
func (s *Syncer) syncThread(ctx context.Context, q database.Querier, thread *github.Notification, unarchive bool) (model.Notification, error) {
	threadID := thread.GetID()
	if threadID == "" {
		return model.Notification{}, errors.New("notification payload has no thread id")
	}

	n, err := q.GetNotificationByGithubID(ctx, database.GetNotificationByGithubIDParams{
		UserID:   s.cfg.UserID,
		GithubID: threadID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("Notification not found in DB, creating new entry", "thread_id", threadID)
		n = model.Notification{UserID: s.cfg.UserID, GithubID: threadID, Unread: true}
	} else if err != nil {
		return model.Notification{}, err
	}

	return s.engine.WithStore(q).UpdateFromPayload(ctx, n, thread, unarchive)
}

func (s *Syncer) since(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.db.InTx(ctx, func(q database.Querier) error {
		ts, err := q.GetLatestNotificationUpdatedAt(ctx, s.cfg.UserID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if ts.Valid {
			latest = ts.Time
		}
		return nil
	})
	if err != nil || latest.IsZero() {
		return time.Time{}, err
	}
	return latest.Add(-sinceOverlap), nil
}
