// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github-notification-sync/internal/database"
	custom_errors "github-notification-sync/internal/errors"
	"github-notification-sync/internal/metrics"
	"github-notification-sync/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Actions are the user operations on a stored notification.
type Actions interface {
	MarkRead(ctx context.Context, n model.Notification) (model.Notification, error)
	Mute(ctx context.Context, n model.Notification) (model.Notification, error)
	Archive(ctx context.Context, n model.Notification) (model.Notification, error)
	Unarchive(ctx context.Context, n model.Notification) (model.Notification, error)
	SetStarred(ctx context.Context, n model.Notification, starred bool) (model.Notification, error)
	WebURL(ctx context.Context, n model.Notification) (string, error)
}

// ThreadSyncer refreshes one thread from GitHub.
type ThreadSyncer interface {
	SyncThread(ctx context.Context, threadID string) (model.Notification, error)
}

// Deps bundles what the router needs.
type Deps struct {
	DB       database.Querier
	Actions  Actions
	Syncer   ThreadSyncer
	UserID   int64
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Handler is the container for API dependencies.
type Handler struct {
	db      database.Querier
	actions Actions
	syncer  ThreadSyncer
	userID  int64
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		db:      d.DB,
		actions: d.Actions,
		syncer:  d.Syncer,
		userID:  d.UserID,
		logger:  d.Logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getNotification)
			r.Get("/web-url", h.getWebURL)
			r.Post("/read", h.markRead)
			r.Post("/mute", h.mute)
			r.Post("/archive", h.localEdit(h.actions.Archive))
			r.Post("/unarchive", h.localEdit(h.actions.Unarchive))
			r.Post("/star", h.localEdit(func(ctx context.Context, n model.Notification) (model.Notification, error) {
				return h.actions.SetStarred(ctx, n, true)
			}))
			r.Post("/unstar", h.localEdit(func(ctx context.Context, n model.Notification) (model.Notification, error) {
				return h.actions.SetStarred(ctx, n, false)
			}))
			r.Post("/refresh", h.refresh)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listNotifications returns the inbox, newest first.
// GET /v1/notifications?q=&repo=&owner=&reason=&type=&unread=&archived=&starred=&limit=&offset=
func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := database.ListNotificationsParams{
		UserID: h.userID,
		Query:  query.Get("q"),
		Repo:   optionalString(query.Get("repo")),
		Owner:  optionalString(query.Get("owner")),
		Reason: optionalString(query.Get("reason")),
		Type:   optionalString(query.Get("type")),
	}

	var err error
	if params.Unread, err = optionalBool(query.Get("unread")); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'unread' parameter. Must be true or false.")
		return
	}
	if params.Archived, err = optionalBool(query.Get("archived")); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'archived' parameter. Must be true or false.")
		return
	}
	if params.Starred, err = optionalBool(query.Get("starred")); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid 'starred' parameter. Must be true or false.")
		return
	}

	limit, err := intParam(query.Get("limit"), defaultListLimit)
	if err != nil || limit <= 0 || limit > maxListLimit {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'offset' parameter. Must be a non-negative integer.")
		return
	}
	params.Limit = int32(limit)
	params.Offset = int32(offset)

	items, err := h.db.ListNotifications(r.Context(), params)
	if err != nil {
		h.logger.Error("Failed to list notifications", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationResponse(n))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// getNotification returns one notification.
// GET /v1/notifications/{id}
func (h *Handler) getNotification(w http.ResponseWriter, r *http.Request) {
	n, ok := h.loadNotification(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, toNotificationResponse(n))
}

// getWebURL resolves the browsable URL of a notification.
// GET /v1/notifications/{id}/web-url
func (h *Handler) getWebURL(w http.ResponseWriter, r *http.Request) {
	n, ok := h.loadNotification(w, r)
	if !ok {
		return
	}
	webURL, err := h.actions.WebURL(r.Context(), n)
	if err != nil {
		h.logger.Error("Failed to resolve web url", "id", n.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"url": webURL})
}

// markRead marks the thread read locally and on GitHub.
// POST /v1/notifications/{id}/read
func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	n, ok := h.loadNotification(w, r)
	if !ok {
		return
	}
	saved, err := h.actions.MarkRead(r.Context(), n)
	h.respondWithAction(w, "mark read", saved, err)
}

// mute marks the thread read, ignores it on GitHub and archives it.
// POST /v1/notifications/{id}/mute
func (h *Handler) mute(w http.ResponseWriter, r *http.Request) {
	n, ok := h.loadNotification(w, r)
	if !ok {
		return
	}
	saved, err := h.actions.Mute(r.Context(), n)
	h.respondWithAction(w, "mute", saved, err)
}

// refresh re-reads the thread from GitHub and reconciles it.
// POST /v1/notifications/{id}/refresh
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	n, ok := h.loadNotification(w, r)
	if !ok {
		return
	}
	saved, err := h.syncer.SyncThread(r.Context(), n.GithubID)
	h.respondWithAction(w, "refresh", saved, err)
}

// localEdit wraps an action that only changes local state.
func (h *Handler) localEdit(action func(context.Context, model.Notification) (model.Notification, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := h.loadNotification(w, r)
		if !ok {
			return
		}
		saved, err := action(r.Context(), n)
		if err != nil {
			h.logger.Error("Failed to update notification", "id", n.ID, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondWithJSON(w, http.StatusOK, toNotificationResponse(saved))
	}
}

// respondWithAction reports the outcome of an action that talks to GitHub.
// The local state may have changed even when the remote call failed.
func (h *Handler) respondWithAction(w http.ResponseWriter, op string, n model.Notification, err error) {
	if custom_errors.IsExpectedAbsence(err) {
		h.logger.Warn("Thread no longer available on GitHub", "op", op, "id", n.ID, "error", err)
		respondWithError(w, http.StatusNotFound, "Thread not found on GitHub")
		return
	}
	if err != nil {
		h.logger.Error("Notification action failed", "op", op, "id", n.ID, "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to "+op+" notification on GitHub")
		return
	}
	respondWithJSON(w, http.StatusOK, toNotificationResponse(n))
}

// loadNotification reads the {id} route parameter and fetches the row,
// writing the error response itself when it returns false.
func (h *Handler) loadNotification(w http.ResponseWriter, r *http.Request) (model.Notification, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid notification id")
		return model.Notification{}, false
	}

	n, err := h.db.GetNotification(r.Context(), database.GetNotificationParams{ID: id, UserID: h.userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, (&custom_errors.ErrNotificationNotFound{ID: id}).Error())
			return model.Notification{}, false
		}
		h.logger.Error("Failed to get notification", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return model.Notification{}, false
	}
	return n, true
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
