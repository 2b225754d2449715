// internal/database/notifications.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github-notification-sync/internal/model"
)

const notificationColumns = `id, user_id, github_id, repository_id, repository_full_name, repository_owner_name,
    subject_type, subject_title, subject_url, latest_comment_url, reason, url,
    unread, archived, starred, updated_at, last_read_at, db_created_at, db_updated_at`

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.GithubID, &n.RepositoryID, &n.RepositoryFullName, &n.RepositoryOwnerName,
		&n.SubjectType, &n.SubjectTitle, &n.SubjectURL, &n.LatestCommentURL, &n.Reason, &n.URL,
		&n.Unread, &n.Archived, &n.Starred, &n.UpdatedAt, &n.LastReadAt, &n.DBCreatedAt, &n.DBUpdatedAt,
	)
	return n, err
}

type GetNotificationParams struct {
	ID     int64
	UserID int64
}

const getNotification = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND user_id = $2`

func (q *Queries) GetNotification(ctx context.Context, arg GetNotificationParams) (model.Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, getNotification, arg.ID, arg.UserID))
}

type GetNotificationByGithubIDParams struct {
	UserID   int64
	GithubID string
}

const getNotificationByGithubID = `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 AND github_id = $2`

func (q *Queries) GetNotificationByGithubID(ctx context.Context, arg GetNotificationByGithubIDParams) (model.Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, getNotificationByGithubID, arg.UserID, arg.GithubID))
}

const createNotification = `
INSERT INTO notifications (
    user_id, github_id, repository_id, repository_full_name, repository_owner_name,
    subject_type, subject_title, subject_url, latest_comment_url, reason, url,
    unread, archived, starred, updated_at, last_read_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + notificationColumns

func (q *Queries) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, createNotification,
		n.UserID, n.GithubID, n.RepositoryID, n.RepositoryFullName, n.RepositoryOwnerName,
		n.SubjectType, n.SubjectTitle, n.SubjectURL, n.LatestCommentURL, n.Reason, n.URL,
		n.Unread, n.Archived, n.Starred, n.UpdatedAt, n.LastReadAt,
	))
}

// UpdateNotificationParams overwrites every attribute of a notification.
// Touch controls whether db_updated_at moves; automated syncs leave it alone.
type UpdateNotificationParams struct {
	Notification model.Notification
	Touch        bool
}

const updateNotification = `
UPDATE notifications SET
    repository_id = $3,
    repository_full_name = $4,
    repository_owner_name = $5,
    subject_type = $6,
    subject_title = $7,
    subject_url = $8,
    latest_comment_url = $9,
    reason = $10,
    url = $11,
    unread = $12,
    archived = $13,
    starred = $14,
    updated_at = $15,
    last_read_at = $16,
    db_updated_at = CASE WHEN $17::boolean THEN now() ELSE db_updated_at END
WHERE id = $1 AND user_id = $2
RETURNING ` + notificationColumns

func (q *Queries) UpdateNotification(ctx context.Context, arg UpdateNotificationParams) (model.Notification, error) {
	n := arg.Notification
	return scanNotification(q.db.QueryRow(ctx, updateNotification,
		n.ID, n.UserID, n.RepositoryID, n.RepositoryFullName, n.RepositoryOwnerName,
		n.SubjectType, n.SubjectTitle, n.SubjectURL, n.LatestCommentURL, n.Reason, n.URL,
		n.Unread, n.Archived, n.Starred, n.UpdatedAt, n.LastReadAt, arg.Touch,
	))
}

// ListNotificationsParams filters the inbox. Nil filters are ignored.
type ListNotificationsParams struct {
	UserID   int64
	Query    string
	Repo     *string
	Owner    *string
	Reason   *string
	Type     *string
	Unread   *bool
	Archived *bool
	Starred  *bool
	Limit    int32
	Offset   int32
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]model.Notification, error) {
	query, args := buildListNotifications(arg)
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func buildListNotifications(arg ListNotificationsParams) (string, []any) {
	args := []any{arg.UserID}
	where := []string{"user_id = $1"}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if arg.Query != "" {
		add("search_vector @@ plainto_tsquery('simple', $%d)", arg.Query)
	}
	if arg.Repo != nil {
		add("repository_full_name = $%d", *arg.Repo)
	}
	if arg.Owner != nil {
		add("repository_owner_name = $%d", *arg.Owner)
	}
	if arg.Reason != nil {
		add("reason = $%d", *arg.Reason)
	}
	if arg.Type != nil {
		add("subject_type = $%d", *arg.Type)
	}
	if arg.Unread != nil {
		add("unread = $%d", *arg.Unread)
	}
	if arg.Archived != nil {
		add("archived = $%d", *arg.Archived)
	}
	if arg.Starred != nil {
		add("starred = $%d", *arg.Starred)
	}

	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, arg.Offset)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` +
		strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY updated_at DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return query, args
}

const getLatestNotificationUpdatedAt = `SELECT MAX(updated_at) FROM notifications WHERE user_id = $1`

func (q *Queries) GetLatestNotificationUpdatedAt(ctx context.Context, userID int64) (pgtype.Timestamptz, error) {
	var ts pgtype.Timestamptz
	err := q.db.QueryRow(ctx, getLatestNotificationUpdatedAt, userID).Scan(&ts)
	return ts, err
}
