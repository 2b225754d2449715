// internal/reconcile/subject.go
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	custom_errors "github-notification-sync/internal/errors"
	"github-notification-sync/internal/model"
)

const stateMerged = "merged"

// ReconcileSubject fetches and merges the remote subject of n when needed.
// Forbidden and not-found subjects end the cycle without mutation; any other
// remote or store error is returned and nothing is written.
func (e *Engine) ReconcileSubject(ctx context.Context, n model.Notification) error {
	if !e.fetchSubject {
		return nil
	}
	if n.SubjectURL == nil || *n.SubjectURL == "" {
		e.metrics.RecordReconcile("no_subject_url")
		return nil
	}

	logger := e.logger.With("thread_id", n.GithubID, "subject_url", *n.SubjectURL, "subject_type", n.Type())

	existing, err := e.store.GetSubjectByURL(ctx, *n.SubjectURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return e.createSubject(ctx, logger, n)
	}
	if err != nil {
		return fmt.Errorf("failed to load subject %q: %w", *n.SubjectURL, err)
	}
	return e.mergeSubject(ctx, logger, n, existing)
}

func (e *Engine) mergeSubject(ctx context.Context, logger *slog.Logger, n model.Notification, existing model.Subject) error {
	if recentlySynced(n, existing) {
		logger.Debug("Subject synced within staleness window, skipping fetch")
		e.metrics.RecordReconcile("skipped_recent")
		return nil
	}

	switch n.Type().Kind() {
	case model.KindTrackable:
		remote, err := e.fetchRemote(ctx, logger, existing.URL)
		if err != nil || remote == nil {
			return err
		}

		merged := existing
		merged.State = coalesce(trackableState(remote), existing.State)
		merged.Author = coalesce(remote.UserLogin, existing.Author)
		merged.HTMLURL = coalesce(remote.HTMLURL, existing.HTMLURL)
		merged.CreatedAt = coalesce(remote.CreatedAt, existing.CreatedAt)
		merged.UpdatedAt = coalesce(remote.UpdatedAt, existing.UpdatedAt)

		changed := merged.ChangedFields(existing)
		if len(changed) == 0 {
			e.metrics.RecordReconcile("unchanged")
			return nil
		}
		if _, err := e.store.UpdateSubject(ctx, merged); err != nil {
			return fmt.Errorf("failed to update subject: %w", err)
		}
		logger.Info("Subject updated", "fields", changed)
		e.metrics.RecordSubjectWrite("update")
		e.metrics.RecordReconcile("merged")
		return nil

	case model.KindAuthored, model.KindUnsupported:
		e.metrics.RecordReconcile("unsupported")
		return nil
	}
	return nil
}

func (e *Engine) createSubject(ctx context.Context, logger *slog.Logger, n model.Notification) error {
	url := *n.SubjectURL
	var subject model.Subject

	switch n.Type().Kind() {
	case model.KindTrackable:
		remote, err := e.fetchRemote(ctx, logger, url)
		if err != nil || remote == nil {
			return err
		}
		subject = model.Subject{
			URL:       url,
			State:     trackableState(remote),
			Author:    remote.UserLogin,
			HTMLURL:   remote.HTMLURL,
			CreatedAt: remote.CreatedAt,
			UpdatedAt: remote.UpdatedAt,
		}

	case model.KindAuthored:
		remote, err := e.fetchRemote(ctx, logger, url)
		if err != nil || remote == nil {
			return err
		}
		// Commits and releases expose an author rather than a reporting user, and have no state.
		subject = model.Subject{
			URL:       url,
			Author:    remote.Author,
			HTMLURL:   remote.HTMLURL,
			CreatedAt: remote.CreatedAt,
			UpdatedAt: remote.UpdatedAt,
		}

	case model.KindUnsupported:
		e.metrics.RecordReconcile("unsupported")
		return nil
	}

	if _, err := e.store.CreateSubject(ctx, subject); err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}
	logger.Info("Subject created")
	e.metrics.RecordSubjectWrite("create")
	e.metrics.RecordReconcile("created")
	return nil
}

// fetchRemote returns nil without error when the subject is forbidden or gone.
func (e *Engine) fetchRemote(ctx context.Context, logger *slog.Logger, url string) (*model.RemoteSubject, error) {
	remote, err := e.remote.FetchSubject(ctx, url)
	if custom_errors.IsExpectedAbsence(err) {
		logger.Warn("Subject not available, skipping this cycle", "error", err)
		e.metrics.RecordSubjectFetch("absent")
		e.metrics.RecordReconcile("absent")
		return nil, nil
	}
	if err != nil {
		e.metrics.RecordSubjectFetch("error")
		return nil, fmt.Errorf("failed to fetch subject %q: %w", url, err)
	}
	e.metrics.RecordSubjectFetch("ok")
	if remote == nil {
		e.metrics.RecordReconcile("absent")
	}
	return remote, nil
}

func recentlySynced(n model.Notification, s model.Subject) bool {
	if n.UpdatedAt == nil || s.UpdatedAt == nil {
		return false
	}
	return n.UpdatedAt.Sub(*s.UpdatedAt).Abs() < StalenessWindow
}

func trackableState(r *model.RemoteSubject) *string {
	if r.Merged() {
		merged := stateMerged
		return &merged
	}
	return r.State
}

func coalesce[T any](v, fallback *T) *T {
	if v != nil {
		return v
	}
	return fallback
}
