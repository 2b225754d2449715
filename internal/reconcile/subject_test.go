// internal/reconcile/subject_test.go
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "github-notification-sync/internal/errors"
	"github-notification-sync/internal/model"
)

const (
	issueURL  = "https://api.github.com/repos/octo/hello/issues/1"
	pullURL   = "https://api.github.com/repos/octo/hello/pulls/2"
	commitURL = "https://api.github.com/repos/octo/hello/commits/abc"
)

func TestReconcileSubject_Disabled(t *testing.T) {
	te := newTestEngine(t, false)
	ctx := context.Background()

	err := te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime))

	require.NoError(t, err)
	te.store.AssertNotCalled(t, "GetSubjectByURL", mock.Anything, mock.Anything)
	te.remote.AssertNotCalled(t, "FetchSubject", mock.Anything, mock.Anything)
}

func TestReconcileSubject_ExistingSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("skips fetch within the staleness window", func(t *testing.T) {
		for _, delta := range []time.Duration{0, 1999 * time.Millisecond, -1999 * time.Millisecond} {
			te := newTestEngine(t, true)
			existing := model.Subject{URL: issueURL, State: strPtr("open"), UpdatedAt: timePtr(baseTime.Add(delta))}
			te.store.On("GetSubjectByURL", ctx, issueURL).Return(existing, nil).Once()

			err := te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime))

			require.NoError(t, err)
			te.remote.AssertNotCalled(t, "FetchSubject", mock.Anything, mock.Anything)
			te.store.AssertNotCalled(t, "UpdateSubject", mock.Anything, mock.Anything)
			assert.Equal(t, 1, te.rec.outcomes["skipped_recent"], "delta %s", delta)
		}
	})

	t.Run("merges a changed trackable subject", func(t *testing.T) {
		te := newTestEngine(t, true)
		existing := model.Subject{
			ID:        3,
			URL:       pullURL,
			State:     strPtr("open"),
			Author:    strPtr("octocat"),
			UpdatedAt: timePtr(baseTime.Add(-time.Hour)),
		}
		remote := &model.RemoteSubject{
			State:     strPtr("closed"),
			MergedAt:  timePtr(baseTime),
			UserLogin: strPtr("octocat"),
			HTMLURL:   strPtr("https://github.com/octo/hello/pull/2"),
			UpdatedAt: timePtr(baseTime),
		}
		te.store.On("GetSubjectByURL", ctx, pullURL).Return(existing, nil).Once()
		te.remote.On("FetchSubject", ctx, pullURL).Return(remote, nil).Once()
		te.store.On("UpdateSubject", ctx, mock.MatchedBy(func(s model.Subject) bool {
			return s.ID == 3 && *s.State == "merged" && *s.HTMLURL == "https://github.com/octo/hello/pull/2" && s.UpdatedAt.Equal(baseTime)
		})).Return(model.Subject{}, nil).Once()

		err := te.ReconcileSubject(ctx, notificationFor(model.SubjectPullRequest, pullURL, baseTime))

		require.NoError(t, err)
		assert.Equal(t, 1, te.rec.outcomes["merged"])
	})

	t.Run("does not write an unchanged subject", func(t *testing.T) {
		te := newTestEngine(t, true)
		existing := model.Subject{URL: issueURL, State: strPtr("open"), Author: strPtr("octocat"), UpdatedAt: timePtr(baseTime.Add(-time.Hour))}
		remote := &model.RemoteSubject{State: strPtr("open"), UserLogin: strPtr("octocat"), UpdatedAt: timePtr(baseTime.Add(-time.Hour))}
		te.store.On("GetSubjectByURL", ctx, issueURL).Return(existing, nil).Once()
		te.remote.On("FetchSubject", ctx, issueURL).Return(remote, nil).Once()

		err := te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime))

		require.NoError(t, err)
		te.store.AssertNotCalled(t, "UpdateSubject", mock.Anything, mock.Anything)
		assert.Equal(t, 1, te.rec.outcomes["unchanged"])
	})

	t.Run("existing commit subjects are not refetched", func(t *testing.T) {
		te := newTestEngine(t, true)
		existing := model.Subject{URL: commitURL, Author: strPtr("hubot"), UpdatedAt: timePtr(baseTime.Add(-24 * time.Hour))}
		te.store.On("GetSubjectByURL", ctx, commitURL).Return(existing, nil).Once()

		err := te.ReconcileSubject(ctx, notificationFor(model.SubjectCommit, commitURL, baseTime))

		require.NoError(t, err)
		te.remote.AssertNotCalled(t, "FetchSubject", mock.Anything, mock.Anything)
		assert.Equal(t, 1, te.rec.outcomes["unsupported"])
	})
}

func TestReconcileSubject_NewSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("merged pull request", func(t *testing.T) {
		te := newTestEngine(t, true)
		remote := &model.RemoteSubject{
			State:     strPtr("closed"),
			MergedAt:  timePtr(baseTime),
			UserLogin: strPtr("octocat"),
			Author:    strPtr("ignored"),
			HTMLURL:   strPtr("https://github.com/octo/hello/pull/2"),
			CreatedAt: timePtr(baseTime.Add(-48 * time.Hour)),
			UpdatedAt: timePtr(baseTime),
		}
		te.store.On("GetSubjectByURL", ctx, pullURL).Return(model.Subject{}, pgx.ErrNoRows).Once()
		te.remote.On("FetchSubject", ctx, pullURL).Return(remote, nil).Once()
		te.store.On("CreateSubject", ctx, model.Subject{
			URL:       pullURL,
			State:     strPtr("merged"),
			Author:    strPtr("octocat"),
			HTMLURL:   strPtr("https://github.com/octo/hello/pull/2"),
			CreatedAt: timePtr(baseTime.Add(-48 * time.Hour)),
			UpdatedAt: timePtr(baseTime),
		}).Return(model.Subject{ID: 1}, nil).Once()

		require.NoError(t, te.ReconcileSubject(ctx, notificationFor(model.SubjectPullRequest, pullURL, baseTime)))
		assert.Equal(t, 1, te.rec.outcomes["created"])
	})

	t.Run("issue keeps the remote state", func(t *testing.T) {
		for _, state := range []string{"open", "closed"} {
			te := newTestEngine(t, true)
			remote := &model.RemoteSubject{State: strPtr(state), UserLogin: strPtr("octocat")}
			te.store.On("GetSubjectByURL", ctx, issueURL).Return(model.Subject{}, pgx.ErrNoRows).Once()
			te.remote.On("FetchSubject", ctx, issueURL).Return(remote, nil).Once()
			te.store.On("CreateSubject", ctx, mock.MatchedBy(func(s model.Subject) bool {
				return *s.State == state && *s.Author == "octocat"
			})).Return(model.Subject{ID: 1}, nil).Once()

			require.NoError(t, te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime)))
		}
	})

	t.Run("commit uses the author login and no state", func(t *testing.T) {
		te := newTestEngine(t, true)
		remote := &model.RemoteSubject{
			UserLogin: strPtr("not-used"),
			Author:    strPtr("hubot"),
			HTMLURL:   strPtr("https://github.com/octo/hello/commit/abc"),
			CreatedAt: timePtr(baseTime),
			UpdatedAt: timePtr(baseTime),
		}
		te.store.On("GetSubjectByURL", ctx, commitURL).Return(model.Subject{}, pgx.ErrNoRows).Once()
		te.remote.On("FetchSubject", ctx, commitURL).Return(remote, nil).Once()
		te.store.On("CreateSubject", ctx, model.Subject{
			URL:       commitURL,
			Author:    strPtr("hubot"),
			HTMLURL:   strPtr("https://github.com/octo/hello/commit/abc"),
			CreatedAt: timePtr(baseTime),
			UpdatedAt: timePtr(baseTime),
		}).Return(model.Subject{ID: 1}, nil).Once()

		require.NoError(t, te.ReconcileSubject(ctx, notificationFor(model.SubjectCommit, commitURL, baseTime)))
	})

	t.Run("unsupported types never create a subject", func(t *testing.T) {
		for _, typ := range []model.SubjectType{model.SubjectRepositoryInvitation, "CheckSuite", "Discussion"} {
			te := newTestEngine(t, true)
			url := "https://github.com/octo/hello/invitations"
			te.store.On("GetSubjectByURL", ctx, url).Return(model.Subject{}, pgx.ErrNoRows).Once()

			require.NoError(t, te.ReconcileSubject(ctx, notificationFor(typ, url, baseTime)))
			te.remote.AssertNotCalled(t, "FetchSubject", mock.Anything, mock.Anything)
			te.store.AssertNotCalled(t, "CreateSubject", mock.Anything, mock.Anything)
		}
	})

	t.Run("no subject url means nothing to link", func(t *testing.T) {
		te := newTestEngine(t, true)
		n := notificationFor(model.SubjectIssue, "", baseTime)
		n.SubjectURL = nil

		require.NoError(t, te.ReconcileSubject(ctx, n))
		te.store.AssertNotCalled(t, "GetSubjectByURL", mock.Anything, mock.Anything)
	})
}

func TestReconcileSubject_FetchFailures(t *testing.T) {
	ctx := context.Background()

	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		t.Run(fmt.Sprintf("status %d is swallowed", status), func(t *testing.T) {
			remoteErr := &custom_errors.RemoteError{URL: issueURL, StatusCode: status, Err: errors.New("gone")}

			te := newTestEngine(t, true)
			te.store.On("GetSubjectByURL", ctx, issueURL).Return(model.Subject{}, pgx.ErrNoRows).Once()
			te.remote.On("FetchSubject", ctx, issueURL).Return(nil, remoteErr).Once()
			require.NoError(t, te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime)))
			te.store.AssertNotCalled(t, "CreateSubject", mock.Anything, mock.Anything)

			te = newTestEngine(t, true)
			existing := model.Subject{URL: issueURL, State: strPtr("open"), UpdatedAt: timePtr(baseTime.Add(-time.Hour))}
			te.store.On("GetSubjectByURL", ctx, issueURL).Return(existing, nil).Once()
			te.remote.On("FetchSubject", ctx, issueURL).Return(nil, fmt.Errorf("wrapped: %w", remoteErr)).Once()
			require.NoError(t, te.ReconcileSubject(ctx, notificationFor(model.SubjectIssue, issueURL, baseTime)))
			te.store.AssertNotCalled(t, "UpdateSubject", mock.Anything, mock.Anything)
		})
	}

	t.Run("transport errors propagate without writes", func(t *testing.T) {
		te := newTestEngine(t, true)
		transportErr := errors.New("connection reset by peer")
		te.store.On("GetSubjectByURL", ctx, pullURL).Return(model.Subject{}, pgx.ErrNoRows).Once()
		te.remote.On("FetchSubject", ctx, pullURL).Return(nil, transportErr).Once()

		err := te.ReconcileSubject(ctx, notificationFor(model.SubjectPullRequest, pullURL, baseTime))

		assert.ErrorIs(t, err, transportErr)
		te.store.AssertNotCalled(t, "CreateSubject", mock.Anything, mock.Anything)
	})

	t.Run("store lookup errors propagate", func(t *testing.T) {
		te := newTestEngine(t, true)
		dbErr := errors.New("unexpected database error")
		te.store.On("GetSubjectByURL", ctx, pullURL).Return(model.Subject{}, dbErr).Once()

		err := te.ReconcileSubject(ctx, notificationFor(model.SubjectPullRequest, pullURL, baseTime))

		assert.ErrorIs(t, err, dbErr)
		te.remote.AssertNotCalled(t, "FetchSubject", mock.Anything, mock.Anything)
	})
}
