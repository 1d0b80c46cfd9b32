package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/ports"
)

// MessageHandler handles the conversation message log.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Append handles POST /v1/conversations/:id/messages.
//
// @Summary      Send a message
// @Description  Needs a body or an attachment. Pending conversations reject messages with code not_approved.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Conversation id"
// @Param        body  body      appendMessageRequest  true  "Message content"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/conversations/{id}/messages [post]
func (h *MessageHandler) Append(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req appendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.service.Append(c.Request().Context(), ports.AppendMessageInput{
		SenderID:       userID,
		ConversationID: c.Param("id"),
		Body:           req.Body,
		AttachmentRef:  req.AttachmentRef,
		AttachmentName: req.AttachmentName,
		AttachmentType: req.AttachmentType,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// List handles GET /v1/conversations/:id/messages.
//
// @Summary      Read the message log
// @Description  Without after, returns the latest page ending at before (inclusive). With after, returns messages with a greater seq; clients use it to reconcile after a reconnect.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true   "Conversation id"
// @Param        limit   query     int     false  "Page size"
// @Param        before  query     int     false  "Highest seq to include"
// @Param        after   query     int     false  "Return messages after this seq"
// @Success      200     {object}  messageListResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /v1/conversations/{id}/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	var (
		limit         int
		before, after int64
	)
	if err := echo.QueryParamsBinder(c).
		Int("limit", &limit).
		Int64("before", &before).
		Int64("after", &after).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit, before and after must be integers")
	}

	ctx := c.Request().Context()
	convID := c.Param("id")

	if c.QueryParam("after") != "" {
		msgs, err := h.service.ListSince(ctx, userID, convID, after, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toMessageList(msgs))
	}

	msgs, err := h.service.List(ctx, ports.ListMessagesInput{
		ActorID:        userID,
		ConversationID: convID,
		Limit:          limit,
		Before:         before,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMessageList(msgs))
}
