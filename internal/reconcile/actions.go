// internal/reconcile/actions.go
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/model"
)

// MarkRead clears the unread flag locally, then on GitHub. The local write
// does not move db_updated_at. If the remote call fails the local flag stays
// cleared and the error is returned.
func (e *Engine) MarkRead(ctx context.Context, n model.Notification) (model.Notification, error) {
	n.Unread = false
	saved, err := e.store.UpdateNotification(ctx, database.UpdateNotificationParams{Notification: n, Touch: false})
	if err != nil {
		return n, fmt.Errorf("failed to mark notification %d read: %w", n.ID, err)
	}
	e.metrics.RecordNotificationWrite("mark_read")

	if err := e.remote.MarkThreadRead(ctx, n.GithubID); err != nil {
		return saved, fmt.Errorf("failed to mark thread %s read on github: %w", n.GithubID, err)
	}
	return saved, nil
}

// Mute marks the thread read and ignored on GitHub, then archives it locally.
// All three steps always run in that order; failures are joined and nothing
// is rolled back, so the next sync corrects any drift.
func (e *Engine) Mute(ctx context.Context, n model.Notification) (model.Notification, error) {
	var errs []error
	if err := e.remote.MarkThreadRead(ctx, n.GithubID); err != nil {
		errs = append(errs, fmt.Errorf("failed to mark thread %s read on github: %w", n.GithubID, err))
	}
	if err := e.remote.SetThreadSubscription(ctx, n.GithubID, true); err != nil {
		errs = append(errs, fmt.Errorf("failed to ignore thread %s on github: %w", n.GithubID, err))
	}

	n.Archived = true
	n.Unread = false
	saved, err := e.store.UpdateNotification(ctx, database.UpdateNotificationParams{Notification: n, Touch: true})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to archive notification %d: %w", n.ID, err))
		saved = n
	} else {
		e.metrics.RecordNotificationWrite("mute")
	}

	if len(errs) > 0 {
		e.logger.Warn("Mute finished with errors", "thread_id", n.GithubID, "errors", len(errs))
	}
	return saved, errors.Join(errs...)
}

// Archive moves the notification out of the inbox.
func (e *Engine) Archive(ctx context.Context, n model.Notification) (model.Notification, error) {
	return e.edit(ctx, n, "archive", func(n *model.Notification) { n.Archived = true })
}

// Unarchive moves the notification back into the inbox.
func (e *Engine) Unarchive(ctx context.Context, n model.Notification) (model.Notification, error) {
	return e.edit(ctx, n, "unarchive", func(n *model.Notification) { n.Archived = false })
}

// SetStarred stars or unstars the notification.
func (e *Engine) SetStarred(ctx context.Context, n model.Notification, starred bool) (model.Notification, error) {
	return e.edit(ctx, n, "star", func(n *model.Notification) { n.Starred = starred })
}

// edit applies a local-only user change and persists it with a touch.
func (e *Engine) edit(ctx context.Context, n model.Notification, op string, change func(*model.Notification)) (model.Notification, error) {
	before := n
	change(&n)
	if len(n.ChangedFields(before)) == 0 {
		return n, nil
	}

	saved, err := e.store.UpdateNotification(ctx, database.UpdateNotificationParams{Notification: n, Touch: true})
	if err != nil {
		return before, fmt.Errorf("failed to %s notification %d: %w", op, n.ID, err)
	}
	e.metrics.RecordNotificationWrite(op)
	return saved, nil
}

// WebURL resolves the browsable URL of a notification: the subject's html
// URL when the subject is known, otherwise the raw subject URL, deep-linked
// to the latest comment by the URL normalizer.
func (e *Engine) WebURL(ctx context.Context, n model.Notification) (string, error) {
	target := deref(n.SubjectURL)
	if target != "" {
		subject, err := e.store.GetSubjectByURL(ctx, target)
		switch {
		case err == nil:
			if subject.HTMLURL != nil && *subject.HTMLURL != "" {
				target = *subject.HTMLURL
			}
		case !errors.Is(err, pgx.ErrNoRows):
			return "", fmt.Errorf("failed to load subject %q: %w", target, err)
		}
	}

	if e.urls == nil {
		return target, nil
	}
	return e.urls.WebURL(target, deref(n.LatestCommentURL)), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
