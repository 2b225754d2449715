// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	custom_errors "github-notification-sync/internal/errors"
	"github-notification-sync/internal/model"
)

const (
	maxRetries       = 3
	retryDelay       = 200 * time.Millisecond
	maxRateLimitWait = 2 * time.Minute
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*clientOptions)

type clientOptions struct {
	enterpriseURL     string
	requestsPerSecond float64
}

// WithEnterpriseURL points the client at a GitHub Enterprise API base URL.
func WithEnterpriseURL(url string) Option {
	return func(o *clientOptions) { o.enterpriseURL = url }
}

// WithRequestsPerSecond caps outgoing API calls.
func WithRequestsPerSecond(rps float64) Option {
	return func(o *clientOptions) { o.requestsPerSecond = rps }
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	o := clientOptions{requestsPerSecond: 10}
	for _, opt := range opts {
		opt(&o)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := github.NewClient(oauth2.NewClient(context.Background(), ts))
	if o.enterpriseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(o.enterpriseURL, o.enterpriseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid enterprise url: %w", err)
		}
	}

	return &Client{
		gh:      gh,
		limiter: rate.NewLimiter(rate.Limit(o.requestsPerSecond), 1),
		logger:  logger,
	}, nil
}

// GetAuthenticatedUser returns the account the token belongs to.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	var user *github.User
	err := c.withRetry(ctx, "user", func() (*github.Response, error) {
		u, resp, err := c.gh.Users.Get(ctx, "")
		user = u
		return resp, err
	})
	return user, err
}

// ListNotifications fetches every notification thread updated since the given time.
// It handles API pagination transparently.
func (c *Client) ListNotifications(ctx context.Context, since time.Time, all bool) ([]*github.Notification, error) {
	var threads []*github.Notification

	opts := &github.NotificationListOptions{
		All:   all,
		Since: since,
		ListOptions: github.ListOptions{
			PerPage: 50, // Max per page for notifications
		},
	}

	for {
		c.logger.Debug("Fetching notifications page", "page", opts.Page, "since", since)

		var page []*github.Notification
		var resp *github.Response
		err := c.withRetry(ctx, "notifications", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Activity.ListNotifications(ctx, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		threads = append(threads, page...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return threads, nil
}

// GetThread fetches a single notification thread.
func (c *Client) GetThread(ctx context.Context, threadID string) (*github.Notification, error) {
	var thread *github.Notification
	err := c.withRetry(ctx, "thread "+threadID, func() (*github.Response, error) {
		t, resp, err := c.gh.Activity.GetThread(ctx, threadID)
		thread = t
		return resp, err
	})
	return thread, err
}

// FetchSubject fetches the issue, pull request, commit or release behind a
// notification subject URL. Forbidden and not-found responses are returned as
// *errors.RemoteError values matching errors.ErrForbidden / errors.ErrNotFound.
func (c *Client) FetchSubject(ctx context.Context, url string) (*model.RemoteSubject, error) {
	var payload subjectPayload
	err := c.withRetry(ctx, url, func() (*github.Response, error) {
		req, err := c.gh.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		payload = subjectPayload{}
		return c.gh.Do(ctx, req, &payload)
	})
	if err != nil {
		return nil, err
	}
	return payload.toRemoteSubject(), nil
}

// MarkThreadRead marks a notification thread as read on GitHub.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	return c.withRetry(ctx, "thread "+threadID, func() (*github.Response, error) {
		return c.gh.Activity.MarkThreadRead(ctx, threadID)
	})
}

// SetThreadSubscription sets the ignored flag of the thread subscription.
func (c *Client) SetThreadSubscription(ctx context.Context, threadID string, ignored bool) error {
	return c.withRetry(ctx, "thread "+threadID, func() (*github.Response, error) {
		_, resp, err := c.gh.Activity.SetThreadSubscription(ctx, threadID, &github.Subscription{
			Ignored: github.Bool(ignored),
		})
		return resp, err
	})
}

// withRetry runs op, retrying server errors and waiting out rate limits.
// Client errors are returned as *errors.RemoteError.
func (c *Client) withRetry(ctx context.Context, target string, op func() (*github.Response, error)) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err = op()
		if err == nil {
			return nil
		}

		wait, retry := c.retryAfter(err, attempt)
		if !retry || attempt == maxRetries {
			break
		}
		c.logger.Warn("Retrying GitHub request", "target", target, "attempt", attempt, "wait", wait, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return toRemoteError(target, err)
}

func (c *Client) retryAfter(err error, attempt int) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time) + 100*time.Millisecond
		if wait > maxRateLimitWait {
			return 0, false
		}
		return max(wait, 0), true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := abuseErr.GetRetryAfter()
		if wait > maxRateLimitWait {
			return 0, false
		}
		return wait, true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
		return time.Duration(attempt) * retryDelay, true
	}
	return 0, false
}

func toRemoteError(target string, err error) error {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return &custom_errors.RemoteError{URL: target, StatusCode: respErr.Response.StatusCode, Err: err}
	}
	return err
}

// subjectPayload covers the fields of issue, pull request, commit and release responses.
type subjectPayload struct {
	State       *string           `json:"state"`
	MergedAt    *github.Timestamp `json:"merged_at"`
	User        *github.User      `json:"user"`
	Author      *github.User      `json:"author"`
	HTMLURL     *string           `json:"html_url"`
	CreatedAt   *github.Timestamp `json:"created_at"`
	UpdatedAt   *github.Timestamp `json:"updated_at"`
	PublishedAt *github.Timestamp `json:"published_at"`
	Commit      *github.Commit    `json:"commit"`
}

// toRemoteSubject translates the payload to our internal model.RemoteSubject.
// Commits carry no top-level timestamps, so their author and committer dates are used.
func (p subjectPayload) toRemoteSubject() *model.RemoteSubject {
	r := &model.RemoteSubject{
		State:     p.State,
		MergedAt:  timePtr(p.MergedAt),
		HTMLURL:   p.HTMLURL,
		CreatedAt: timePtr(p.CreatedAt),
		UpdatedAt: timePtr(p.UpdatedAt),
	}
	if p.User != nil {
		r.UserLogin = p.User.Login
	}
	if p.Author != nil {
		r.Author = p.Author.Login
	}
	if p.Commit != nil {
		if r.CreatedAt == nil {
			authored := p.Commit.GetAuthor().GetDate()
			r.CreatedAt = timePtr(&authored)
		}
		if r.UpdatedAt == nil {
			committed := p.Commit.GetCommitter().GetDate()
			r.UpdatedAt = timePtr(&committed)
		}
	}
	if r.UpdatedAt == nil {
		r.UpdatedAt = timePtr(p.PublishedAt)
	}
	return r
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
