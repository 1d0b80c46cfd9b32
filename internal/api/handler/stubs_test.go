package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// ----- Stubs -----

type stubConversationService struct {
	startDirectFn func(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error)
	createGroupFn func(ctx context.Context, input ports.CreateGroupInput) (*domain.Conversation, error)
	renameFn      func(ctx context.Context, actorID, conversationID, newName string) (*domain.Conversation, error)
	setAvatarFn   func(ctx context.Context, actorID, conversationID, ref string) (*domain.Conversation, error)
	getFn         func(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error)
	listFn        func(ctx context.Context, userID string) ([]*domain.Conversation, error)
}

func (s *stubConversationService) StartDirect(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error) {
	return s.startDirectFn(ctx, requesterID, targetID)
}

func (s *stubConversationService) CreateGroup(ctx context.Context, input ports.CreateGroupInput) (*domain.Conversation, error) {
	return s.createGroupFn(ctx, input)
}

func (s *stubConversationService) RenameGroup(ctx context.Context, actorID, conversationID, newName string) (*domain.Conversation, error) {
	return s.renameFn(ctx, actorID, conversationID, newName)
}

func (s *stubConversationService) SetAvatar(ctx context.Context, actorID, conversationID, ref string) (*domain.Conversation, error) {
	return s.setAvatarFn(ctx, actorID, conversationID, ref)
}

func (s *stubConversationService) Get(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error) {
	return s.getFn(ctx, actorID, conversationID)
}

func (s *stubConversationService) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	return s.listFn(ctx, userID)
}

type stubApprovalService struct {
	approveFn     func(ctx context.Context, staffID, conversationID string) (*domain.Conversation, error)
	listPendingFn func(ctx context.Context, staffID string) ([]*domain.Conversation, error)
}

func (s *stubApprovalService) DecideInitialStatus(role string) (domain.ApprovalStatus, error) {
	if role == domain.RoleIntern {
		return domain.ApprovalPending, nil
	}
	return domain.ApprovalApproved, nil
}

func (s *stubApprovalService) Approve(ctx context.Context, staffID, conversationID string) (*domain.Conversation, error) {
	return s.approveFn(ctx, staffID, conversationID)
}

func (s *stubApprovalService) ListPending(ctx context.Context, staffID string) ([]*domain.Conversation, error) {
	return s.listPendingFn(ctx, staffID)
}

type stubMembershipService struct {
	addFn     func(ctx context.Context, actorID, conversationID string, userIDs []string) ([]domain.Member, error)
	removeFn  func(ctx context.Context, actorID, conversationID, memberID string) error
	requestFn func(ctx context.Context, actorID, conversationID, memberID string) (*ports.RemovalConfirmation, error)
	confirmFn func(ctx context.Context, actorID, token string) error
	promoteFn func(ctx context.Context, actorID, conversationID, memberID string) error
	listFn    func(ctx context.Context, actorID, conversationID string) ([]ports.MemberView, error)
}

func (s *stubMembershipService) AddMembers(ctx context.Context, actorID, conversationID string, userIDs []string) ([]domain.Member, error) {
	return s.addFn(ctx, actorID, conversationID, userIDs)
}

func (s *stubMembershipService) RemoveMember(ctx context.Context, actorID, conversationID, memberID string) error {
	return s.removeFn(ctx, actorID, conversationID, memberID)
}

func (s *stubMembershipService) RequestMemberRemoval(ctx context.Context, actorID, conversationID, memberID string) (*ports.RemovalConfirmation, error) {
	return s.requestFn(ctx, actorID, conversationID, memberID)
}

func (s *stubMembershipService) ConfirmMemberRemoval(ctx context.Context, actorID, token string) error {
	return s.confirmFn(ctx, actorID, token)
}

func (s *stubMembershipService) Promote(ctx context.Context, actorID, conversationID, memberID string) error {
	return s.promoteFn(ctx, actorID, conversationID, memberID)
}

func (s *stubMembershipService) ListMembers(ctx context.Context, actorID, conversationID string) ([]ports.MemberView, error) {
	return s.listFn(ctx, actorID, conversationID)
}

type stubMessageService struct {
	appendFn    func(ctx context.Context, input ports.AppendMessageInput) (*domain.Message, error)
	listFn      func(ctx context.Context, input ports.ListMessagesInput) ([]*domain.Message, error)
	listSinceFn func(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error)
	authorizeFn func(ctx context.Context, actorID, conversationID string) error
}

func (s *stubMessageService) Append(ctx context.Context, input ports.AppendMessageInput) (*domain.Message, error) {
	return s.appendFn(ctx, input)
}

func (s *stubMessageService) List(ctx context.Context, input ports.ListMessagesInput) ([]*domain.Message, error) {
	return s.listFn(ctx, input)
}

func (s *stubMessageService) ListSince(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	return s.listSinceFn(ctx, actorID, conversationID, afterSeq, limit)
}

func (s *stubMessageService) Authorize(ctx context.Context, actorID, conversationID string) error {
	return s.authorizeFn(ctx, actorID, conversationID)
}

type stubNotificationService struct {
	listFn        func(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error)
	unreadFn      func(ctx context.Context, userID string) (int64, error)
	markReadFn    func(ctx context.Context, userID, notificationID string) error
	markAllReadFn func(ctx context.Context, userID string) (int64, error)
}

func (s *stubNotificationService) Notify(ctx context.Context, input ports.NotifyInput) (*domain.Notification, error) {
	return nil, errors.New("not used")
}

func (s *stubNotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	return s.listFn(ctx, userID, unreadOnly, limit)
}

func (s *stubNotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.unreadFn(ctx, userID)
}

func (s *stubNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.markReadFn(ctx, userID, notificationID)
}

func (s *stubNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.markAllReadFn(ctx, userID)
}

// ----- Helpers -----

// newRequest builds an echo context for an authenticated caller. An empty
// body sends no payload.
func newRequest(method, target string, body io.Reader, userID, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
		c.Set("role", role)
	}
	return c, rec
}

func expectHTTPError(t *testing.T, err error, status int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError %d, got %v", status, err)
	}
	if he.Code != status {
		t.Fatalf("expected status %d, got %d (%v)", status, he.Code, he.Message)
	}
}

func sampleGroup() *domain.Conversation {
	return &domain.Conversation{
		ID:             "c1",
		Kind:           domain.KindGroup,
		Name:           "Ops",
		CreatedBy:      "alice",
		ApprovalStatus: domain.ApprovalApproved,
		Members: []domain.Member{
			{UserID: "alice", Role: domain.MemberRoleAdmin},
			{UserID: "bob", Role: domain.MemberRoleMember},
		},
	}
}

