// internal/reconcile/update.go
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v62/github"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/model"
)

// UpdateFromPayload overwrites n with the payload attributes, reconciles its
// subject and, when unarchive is set, reopens an archived thread that saw
// newer activity. A notification without an ID is inserted; an existing one
// is written only if something changed, without moving db_updated_at.
//
// Callers wanting atomicity run it on an engine bound to a transaction.
func (e *Engine) UpdateFromPayload(ctx context.Context, n model.Notification, payload *github.Notification, unarchive bool) (model.Notification, error) {
	before := n

	ExtractAttributes(payload).Apply(&n)

	if err := e.ReconcileSubject(ctx, n); err != nil {
		return before, err
	}

	if unarchive {
		applyUnarchive(&n, before.UpdatedAt)
	}

	if n.ID == 0 {
		created, err := e.store.CreateNotification(ctx, n)
		if err != nil {
			return before, fmt.Errorf("failed to create notification %s: %w", n.GithubID, err)
		}
		e.metrics.RecordNotificationWrite("create")
		return created, nil
	}

	changed := n.ChangedFields(before)
	if len(changed) == 0 {
		return n, nil
	}

	saved, err := e.store.UpdateNotification(ctx, database.UpdateNotificationParams{Notification: n, Touch: false})
	if err != nil {
		return before, fmt.Errorf("failed to update notification %s: %w", n.GithubID, err)
	}
	e.logger.Debug("Notification updated from payload", "thread_id", n.GithubID, "fields", changed)
	e.metrics.RecordNotificationWrite("update")
	return saved, nil
}

// applyUnarchive clears archived when the new update timestamp is strictly
// later than the previous one. A missing previous timestamp counts as older.
func applyUnarchive(n *model.Notification, previous *time.Time) {
	if !n.Archived || n.UpdatedAt == nil {
		return
	}
	if previous == nil || n.UpdatedAt.After(*previous) {
		n.Archived = false
	}
}
