package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/ports"
)

// ConversationHandler handles conversation lifecycle, group settings and the
// approval queue.
type ConversationHandler struct {
	conversations ports.ConversationService
	approvals     ports.ApprovalService
}

func NewConversationHandler(conversations ports.ConversationService, approvals ports.ApprovalService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, approvals: approvals}
}

// StartDirect handles POST /v1/conversations/direct.
//
// @Summary      Start or reuse a direct conversation
// @Description  Returns 201 when a conversation was created and 200 when the existing one for the pair is reused.
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      startDirectRequest  true  "Target user"
// @Success      200   {object}  startDirectResponse
// @Success      201   {object}  startDirectResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/conversations/direct [post]
func (h *ConversationHandler) StartDirect(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req startDirectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.conversations.StartDirect(c.Request().Context(), userID, req.TargetID)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, startDirectResponse{
		Conversation: toConversationResponse(res.Conversation),
		Created:      res.Created,
	})
}

// CreateGroup handles POST /v1/conversations/groups.
//
// @Summary      Create a group conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createGroupRequest  true  "Group settings and initial members"
// @Success      201   {object}  conversationResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/conversations/groups [post]
func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	conv, err := h.conversations.CreateGroup(c.Request().Context(), ports.CreateGroupInput{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		AvatarRef:   req.AvatarRef,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toConversationResponse(conv))
}

// List handles GET /v1/conversations.
//
// @Summary      List the caller's conversations
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  conversationListResponse
// @Router       /v1/conversations [get]
func (h *ConversationHandler) List(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	convs, err := h.conversations.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationList(convs))
}

// ListPending handles GET /v1/conversations/pending.
//
// @Summary      List direct conversations awaiting approval
// @Description  Admins see every pending request, employees the ones they take part in.
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  conversationListResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/conversations/pending [get]
func (h *ConversationHandler) ListPending(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	convs, err := h.approvals.ListPending(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationList(convs))
}

// Get handles GET /v1/conversations/:id.
//
// @Summary      Get a conversation
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  conversationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	conv, err := h.conversations.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationResponse(conv))
}

// Rename handles PATCH /v1/conversations/:id.
//
// @Summary      Rename a group
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Conversation id"
// @Param        body  body      renameGroupRequest  true  "New name"
// @Success      200   {object}  conversationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/conversations/{id} [patch]
func (h *ConversationHandler) Rename(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req renameGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	conv, err := h.conversations.RenameGroup(c.Request().Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationResponse(conv))
}

// SetAvatar handles PUT /v1/conversations/:id/avatar.
//
// @Summary      Set a group avatar
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Conversation id"
// @Param        body  body      setAvatarRequest  true  "Blob store reference"
// @Success      200   {object}  conversationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/conversations/{id}/avatar [put]
func (h *ConversationHandler) SetAvatar(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req setAvatarRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	conv, err := h.conversations.SetAvatar(c.Request().Context(), userID, c.Param("id"), req.AvatarRef)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationResponse(conv))
}

// Approve handles POST /v1/conversations/:id/approve.
//
// @Summary      Approve a pending direct conversation
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  conversationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/conversations/{id}/approve [post]
func (h *ConversationHandler) Approve(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	conv, err := h.approvals.Approve(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationResponse(conv))
}
