package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
	"github.com/agenthive/proxy-server-go/internal/httputil"
	"github.com/agenthive/proxy-server-go/internal/middleware"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationHandler struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationHandler(notificationRepo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepo: notificationRepo}
}

// List handles GET /v1/notifications. `?unread=true` filters to unread rows.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	unreadOnly := r.URL.Query().Get("unread") == "true"

	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxNotificationLimit {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	notifications, err := h.notificationRepo.FindByUser(ctx, account.ID, unreadOnly, limit, offset)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// UnreadCount handles GET /v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	count, err := h.notificationRepo.CountUnread(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles POST /v1/notifications/{notificationID}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)
	notificationID := chi.URLParam(r, "notificationID")

	ok, err := h.notificationRepo.MarkRead(ctx, notificationID, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if !ok {
		httputil.WriteError(w, apperrors.NotFound("Notification"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	updated, err := h.notificationRepo.MarkAllRead(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
