package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/ports"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	service ports.NotificationService
}

func NewNotificationHandler(service ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List handles GET /v1/notifications.
//
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query     bool  false  "Only unread notifications"
// @Param        limit   query     int   false  "Page size"
// @Success      200     {object}  notificationListResponse
// @Failure      400     {object}  errorResponse
// @Router       /v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var (
		unreadOnly bool
		limit      int
	)
	if err := echo.QueryParamsBinder(c).
		Bool("unread", &unreadOnly).
		Int("limit", &limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	ctx := c.Request().Context()
	items, err := h.service.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return err
	}
	unread, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		return err
	}

	resp := notificationListResponse{
		Items:       make([]notificationResponse, len(items)),
		UnreadCount: unread,
	}
	for i, n := range items {
		resp.Items[i] = toNotificationResponse(n)
	}
	return c.JSON(http.StatusOK, resp)
}

// MarkRead handles POST /v1/notifications/:id/read.
//
// @Summary      Mark a notification as read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id  path  string  true  "Notification id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles POST /v1/notifications/read.
//
// @Summary      Mark every notification as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  markAllReadResponse
// @Router       /v1/notifications/read [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.service.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, markAllReadResponse{Updated: n})
}
