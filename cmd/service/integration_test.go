//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/github"
	"github-notification-sync/internal/metrics"
	"github-notification-sync/internal/reconcile"
	"github-notification-sync/internal/syncer"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	// Get the connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(connStr))
	// A second run must be a no-op.
	require.NoError(t, database.RunMigrations(connStr))

	// Create a connection pool
	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	// Teardown function to be called by the test
	teardown := func() {
		dbpool.Close()
		err := pgContainer.Terminate(ctx)
		require.NoError(t, err)
	}

	return dbpool, teardown
}

// fakeGitHub serves the handful of endpoints a sync touches, under the
// enterprise /api/v3 prefix.
func fakeGitHub(t *testing.T, markedRead *atomic.Int32) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	api := func(path string) string { return server.URL + "/api/v3" + path }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1001, "login": "octocat"}`)
	})
	mux.HandleFunc("GET /api/v3/notifications", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"id": "1", "unread": true, "reason": "review_requested", "updated_at": "2024-06-01T12:00:00Z",
			 "repository": {"id": 7, "full_name": "octo/hello", "html_url": "https://github.com/octo/hello", "owner": {"login": "octo"}},
			 "subject": {"title": "Add feature", "type": "PullRequest", "url": %q, "latest_comment_url": %q},
			 "url": %q},
			{"id": "2", "unread": false, "reason": "subscribed", "updated_at": "2024-06-01T11:00:00Z",
			 "repository": {"id": 7, "full_name": "octo/hello", "html_url": "https://github.com/octo/hello", "owner": {"login": "octo"}},
			 "subject": {"title": "Deleted issue", "type": "Issue", "url": %q},
			 "url": %q}
		]`,
			api("/repos/octo/hello/pulls/1"), api("/repos/octo/hello/issues/comments/99"), api("/notifications/threads/1"),
			api("/repos/octo/hello/issues/2"), api("/notifications/threads/2"),
		)
	})
	mux.HandleFunc("GET /api/v3/repos/octo/hello/pulls/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": "closed", "merged_at": "2024-06-01T12:00:00Z", "user": {"login": "hubot"},
			"html_url": "https://github.com/octo/hello/pull/1",
			"created_at": "2024-05-30T09:00:00Z", "updated_at": "2024-06-01T12:00:00Z"}`)
	})
	mux.HandleFunc("GET /api/v3/repos/octo/hello/issues/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	mux.HandleFunc("PATCH /api/v3/notifications/threads/1", func(w http.ResponseWriter, r *http.Request) {
		markedRead.Add(1)
		w.WriteHeader(http.StatusResetContent)
	})

	server = httptest.NewServer(mux)
	return server
}

func TestSyncer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	var markedRead atomic.Int32
	server := fakeGitHub(t, &markedRead)
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ghClient, err := github.NewClient("test-token", logger,
		github.WithEnterpriseURL(server.URL),
		github.WithRequestsPerSecond(100),
	)
	require.NoError(t, err)

	queries := database.New(dbpool)
	user, err := registerUser(ctx, ghClient, queries)
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, int64(1001), user.GithubID)

	urls, err := github.NewURLNormalizer(server.URL)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	engine := reconcile.NewEngine(queries, ghClient, logger, reconcile.Options{
		FetchSubject: true,
		URLs:         urls,
		Metrics:      collector,
	})
	appSyncer, err := syncer.NewSyncer(database.NewTxRunner(dbpool), ghClient, engine, collector, logger, syncer.Config{
		UserID:      user.ID,
		Interval:    time.Hour,
		Concurrency: 2,
		IncludeRead: true,
	})
	require.NoError(t, err)

	// --- ACT ---
	appSyncer.RunSyncCycle(ctx)

	// --- ASSERT ---
	pr, err := queries.GetNotificationByGithubID(ctx, database.GetNotificationByGithubIDParams{UserID: user.ID, GithubID: "1"})
	require.NoError(t, err)
	assert.True(t, pr.Unread)
	assert.Equal(t, "octo/hello", *pr.RepositoryFullName)
	assert.Equal(t, "Add feature", *pr.SubjectTitle)

	subject, err := queries.GetSubjectByURL(ctx, *pr.SubjectURL)
	require.NoError(t, err)
	assert.Equal(t, "merged", *subject.State)
	assert.Equal(t, "hubot", *subject.Author)

	// A missing subject does not stop the notification from being stored.
	issue, err := queries.GetNotificationByGithubID(ctx, database.GetNotificationByGithubIDParams{UserID: user.ID, GithubID: "2"})
	require.NoError(t, err)
	assert.False(t, issue.Unread)
	_, err = queries.GetSubjectByURL(ctx, *issue.SubjectURL)
	assert.Error(t, err)

	// Full-text search over subject titles.
	found, err := queries.ListNotifications(ctx, database.ListNotificationsParams{UserID: user.ID, Query: "feature"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].GithubID)

	// A second pass over the same payloads writes nothing.
	before := pr.DBUpdatedAt
	appSyncer.RunSyncCycle(ctx)
	pr, err = queries.GetNotificationByGithubID(ctx, database.GetNotificationByGithubIDParams{UserID: user.ID, GithubID: "1"})
	require.NoError(t, err)
	assert.Equal(t, before, pr.DBUpdatedAt)
	count, err := testutil.GatherAndCount(registry, "notification_sync_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Marking read clears the flag locally and calls GitHub.
	read, err := engine.MarkRead(ctx, pr)
	require.NoError(t, err)
	assert.False(t, read.Unread)
	assert.Equal(t, int32(1), markedRead.Load())

	webURL, err := engine.WebURL(ctx, read)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/hello/pull/1#issuecomment-99", webURL)
}
