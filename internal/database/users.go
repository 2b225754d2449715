// internal/database/users.go
package database

import (
	"context"

	"github-notification-sync/internal/model"
)

type UpsertUserParams struct {
	GithubID int64
	Login    string
}

const upsertUser = `
INSERT INTO users (github_id, login)
VALUES ($1, $2)
ON CONFLICT (github_id) DO UPDATE SET
    login = EXCLUDED.login,
    db_updated_at = now()
RETURNING id, github_id, login, db_created_at, db_updated_at`

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (model.User, error) {
	var u model.User
	err := q.db.QueryRow(ctx, upsertUser, arg.GithubID, arg.Login).Scan(
		&u.ID, &u.GithubID, &u.Login, &u.DBCreatedAt, &u.DBUpdatedAt,
	)
	return u, err
}
