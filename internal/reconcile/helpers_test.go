// internal/reconcile/helpers_test.go
package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/mock"

	"github-notification-sync/internal/database/dbmock"
	"github-notification-sync/internal/model"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) FetchSubject(ctx context.Context, url string) (*model.RemoteSubject, error) {
	args := m.Called(ctx, url)
	subject, _ := args.Get(0).(*model.RemoteSubject)
	return subject, args.Error(1)
}

func (m *mockRemote) MarkThreadRead(ctx context.Context, threadID string) error {
	return m.Called(ctx, threadID).Error(0)
}

func (m *mockRemote) SetThreadSubscription(ctx context.Context, threadID string, ignored bool) error {
	return m.Called(ctx, threadID, ignored).Error(0)
}

// recorder counts reconciliation outcomes.
type recorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *recorder) RecordReconcile(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}
func (r *recorder) RecordSubjectFetch(string)      {}
func (r *recorder) RecordSubjectWrite(string)      {}
func (r *recorder) RecordNotificationWrite(string) {}
func (r *recorder) RecordSyncCycle(int, int)       {}

type fakeNormalizer struct{}

func (fakeNormalizer) WebURL(target, latestCommentURL string) string {
	if latestCommentURL == "" {
		return "web:" + target
	}
	return "web:" + target + "#" + latestCommentURL
}

type testEngine struct {
	*Engine
	store  *dbmock.MockQuerier
	remote *mockRemote
	rec    *recorder
}

func newTestEngine(t *testing.T, fetchSubject bool) testEngine {
	t.Helper()
	store := new(dbmock.MockQuerier)
	remote := new(mockRemote)
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(store, remote, logger, Options{FetchSubject: fetchSubject, URLs: fakeNormalizer{}, Metrics: rec})
	t.Cleanup(func() {
		store.AssertExpectations(t)
		remote.AssertExpectations(t)
	})
	return testEngine{Engine: e, store: store, remote: remote, rec: rec}
}

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newPayload(id string, typ model.SubjectType, subjectURL string, updated time.Time) *github.Notification {
	return &github.Notification{
		ID:        github.String(id),
		Reason:    github.String("mention"),
		Unread:    github.Bool(true),
		URL:       github.String("https://api.github.com/notifications/threads/" + id),
		UpdatedAt: &github.Timestamp{Time: updated},
		Repository: &github.Repository{
			ID:       github.Int64(1296269),
			FullName: github.String("octo/hello"),
			HTMLURL:  github.String("https://github.com/octo/hello"),
			Owner:    &github.User{Login: github.String("octo")},
		},
		Subject: &github.NotificationSubject{
			Title:            github.String("Fix the flaky test"),
			URL:              github.String(subjectURL),
			LatestCommentURL: github.String(subjectURL),
			Type:             github.String(string(typ)),
		},
	}
}

// storedNotification returns a persisted notification matching payload.
func storedNotification(payload *github.Notification) model.Notification {
	n := model.Notification{ID: 10, UserID: 1, GithubID: payload.GetID()}
	ExtractAttributes(payload).Apply(&n)
	return n
}

func notificationFor(typ model.SubjectType, subjectURL string, updated time.Time) model.Notification {
	return model.Notification{
		ID:          10,
		UserID:      1,
		GithubID:    "42",
		SubjectType: strPtr(string(typ)),
		SubjectURL:  strPtr(subjectURL),
		UpdatedAt:   timePtr(updated),
		Unread:      true,
	}
}
