// internal/database/db.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github-notification-sync/internal/model"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is the store contract for users, notifications and subjects.
// Lookups return pgx.ErrNoRows when nothing matches.
type Querier interface {
	UpsertUser(ctx context.Context, arg UpsertUserParams) (model.User, error)

	GetNotification(ctx context.Context, arg GetNotificationParams) (model.Notification, error)
	GetNotificationByGithubID(ctx context.Context, arg GetNotificationByGithubIDParams) (model.Notification, error)
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	UpdateNotification(ctx context.Context, arg UpdateNotificationParams) (model.Notification, error)
	ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]model.Notification, error)
	GetLatestNotificationUpdatedAt(ctx context.Context, userID int64) (pgtype.Timestamptz, error)

	GetSubjectByURL(ctx context.Context, url string) (model.Subject, error)
	CreateSubject(ctx context.Context, s model.Subject) (model.Subject, error)
	UpdateSubject(ctx context.Context, s model.Subject) (model.Subject, error)
}

// Queries implements Querier on top of any DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db. Pass a pgx.Tx to run inside a transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ Querier = (*Queries)(nil)
