// internal/database/subjects.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github-notification-sync/internal/model"
)

const subjectColumns = `id, url, state, author, html_url, created_at, updated_at, db_created_at, db_updated_at`

func scanSubject(row pgx.Row) (model.Subject, error) {
	var s model.Subject
	err := row.Scan(&s.ID, &s.URL, &s.State, &s.Author, &s.HTMLURL, &s.CreatedAt, &s.UpdatedAt, &s.DBCreatedAt, &s.DBUpdatedAt)
	return s, err
}

const getSubjectByURL = `SELECT ` + subjectColumns + ` FROM subjects WHERE url = $1`

func (q *Queries) GetSubjectByURL(ctx context.Context, url string) (model.Subject, error) {
	return scanSubject(q.db.QueryRow(ctx, getSubjectByURL, url))
}

// Two notifications may race to create the same subject; the loser overwrites.
const createSubject = `
INSERT INTO subjects (url, state, author, html_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO UPDATE SET
    state = EXCLUDED.state,
    author = EXCLUDED.author,
    html_url = EXCLUDED.html_url,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at,
    db_updated_at = now()
RETURNING ` + subjectColumns

func (q *Queries) CreateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	return scanSubject(q.db.QueryRow(ctx, createSubject, s.URL, s.State, s.Author, s.HTMLURL, s.CreatedAt, s.UpdatedAt))
}

const updateSubject = `
UPDATE subjects SET
    state = $2,
    author = $3,
    html_url = $4,
    created_at = $5,
    updated_at = $6,
    db_updated_at = now()
WHERE url = $1
RETURNING ` + subjectColumns

func (q *Queries) UpdateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	return scanSubject(q.db.QueryRow(ctx, updateSubject, s.URL, s.State, s.Author, s.HTMLURL, s.CreatedAt, s.UpdatedAt))
}
