// internal/reconcile/engine.go
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/metrics"
	"github-notification-sync/internal/model"
)

// StalenessWindow is how close a notification's and its subject's update
// timestamps must be for a repeated sync of the same event to be skipped.
const StalenessWindow = 2 * time.Second

// RemoteClient is the subset of the GitHub API the engine depends on.
type RemoteClient interface {
	FetchSubject(ctx context.Context, url string) (*model.RemoteSubject, error)
	MarkThreadRead(ctx context.Context, threadID string) error
	SetThreadSubscription(ctx context.Context, threadID string, ignored bool) error
}

// URLNormalizer turns a subject URL into a browsable URL, deep-linking to
// the latest comment when possible.
type URLNormalizer interface {
	WebURL(target, latestCommentURL string) string
}

// Options configures an Engine.
type Options struct {
	// FetchSubject enables fetching and merging subject state.
	FetchSubject bool
	URLs         URLNormalizer
	Metrics      metrics.Recorder
}

// Engine decides which remote fetches and local writes a notification needs.
// It holds no state of its own beyond its collaborators.
type Engine struct {
	store        database.Querier
	remote       RemoteClient
	urls         URLNormalizer
	metrics      metrics.Recorder
	logger       *slog.Logger
	fetchSubject bool
}

// NewEngine creates a new Engine instance.
func NewEngine(store database.Querier, remote RemoteClient, logger *slog.Logger, opts Options) *Engine {
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Engine{
		store:        store,
		remote:       remote,
		urls:         opts.URLs,
		metrics:      rec,
		logger:       logger,
		fetchSubject: opts.FetchSubject,
	}
}

// WithStore returns a copy of the engine that reads and writes through q,
// typically a transaction-scoped querier.
func (e *Engine) WithStore(q database.Querier) *Engine {
	cp := *e
	cp.store = q
	return &cp
}
