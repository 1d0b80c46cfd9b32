package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/ports"
)

// MembershipHandler handles group membership.
type MembershipHandler struct {
	service ports.MembershipService
}

func NewMembershipHandler(service ports.MembershipService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// List handles GET /v1/conversations/:id/members.
//
// @Summary      List the members of a conversation
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  memberListResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/conversations/{id}/members [get]
func (h *MembershipHandler) List(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListMembers(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMemberList(views))
}

// Add handles POST /v1/conversations/:id/members.
//
// @Summary      Add members to a group
// @Description  Users that are already members are skipped; the response lists the members actually added.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Conversation id"
// @Param        body  body      addMembersRequest  true  "Users to add"
// @Success      200   {object}  memberListResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/conversations/{id}/members [post]
func (h *MembershipHandler) Add(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	var req addMembersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	added, err := h.service.AddMembers(c.Request().Context(), userID, c.Param("id"), req.UserIDs)
	if err != nil {
		return err
	}

	items := make([]memberResponse, len(added))
	for i, m := range added {
		items[i] = memberResponse{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	return c.JSON(http.StatusOK, memberListResponse{Items: items})
}

// RequestRemoval handles DELETE /v1/conversations/:id/members/:user_id.
//
// @Summary      Request removal of a group member
// @Description  Validates the removal and returns a single-use token to confirm it.
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Conversation id"
// @Param        user_id  path      string  true  "Member to remove"
// @Success      202      {object}  removalResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse
// @Failure      422      {object}  errorResponse
// @Router       /v1/conversations/{id}/members/{user_id} [delete]
func (h *MembershipHandler) RequestRemoval(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	conf, err := h.service.RequestMemberRemoval(c.Request().Context(), userID, c.Param("id"), c.Param("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, removalResponse{
		Token:      conf.Token,
		ExpiresAt:  conf.ExpiresAt,
		ConfirmURL: "/v1/confirmations/" + conf.Token,
	})
}

// Confirm handles POST /v1/confirmations/:token.
//
// @Summary      Confirm a pending member removal
// @Tags         members
// @Security     BearerAuth
// @Param        token  path  string  true  "Removal token"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/confirmations/{token} [post]
func (h *MembershipHandler) Confirm(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.ConfirmMemberRemoval(c.Request().Context(), userID, c.Param("token")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Promote handles POST /v1/conversations/:id/members/:user_id/promote.
//
// @Summary      Promote a member to group admin
// @Tags         members
// @Security     BearerAuth
// @Param        id       path  string  true  "Conversation id"
// @Param        user_id  path  string  true  "Member to promote"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/conversations/{id}/members/{user_id}/promote [post]
func (h *MembershipHandler) Promote(c echo.Context) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Promote(c.Request().Context(), userID, c.Param("id"), c.Param("user_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
