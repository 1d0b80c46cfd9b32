package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

func TestConversationHandler_StartDirect_CreatedReturns201(t *testing.T) {
	stub := &stubConversationService{
		startDirectFn: func(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error) {
			if requesterID != "dan" || targetID != "eve" {
				t.Fatalf("unexpected args: %s %s", requesterID, targetID)
			}
			return &ports.StartDirectResult{
				Conversation: &domain.Conversation{ID: "d1", Kind: domain.KindDirect, ApprovalStatus: domain.ApprovalPending},
				Created:      true,
			}, nil
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, rec := newRequest(http.MethodPost, "/v1/conversations/direct", strings.NewReader(`{"target_id":"eve"}`), "dan", domain.RoleIntern)
	if err := h.StartDirect(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp startDirectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Created || resp.Conversation.ApprovalStatus != "pending" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp.Conversation.Links.Messages != "/v1/conversations/d1/messages" {
		t.Fatalf("unexpected links: %+v", resp.Conversation.Links)
	}
}

func TestConversationHandler_StartDirect_ReusedReturns200(t *testing.T) {
	stub := &stubConversationService{
		startDirectFn: func(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error) {
			return &ports.StartDirectResult{Conversation: &domain.Conversation{ID: "d1"}}, nil
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, rec := newRequest(http.MethodPost, "/v1/conversations/direct", strings.NewReader(`{"target_id":"bob"}`), "alice", domain.RoleAdmin)
	if err := h.StartDirect(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestConversationHandler_StartDirect_MissingTarget(t *testing.T) {
	h := NewConversationHandler(&stubConversationService{}, &stubApprovalService{})

	c, _ := newRequest(http.MethodPost, "/v1/conversations/direct", strings.NewReader(`{"target_id":"  "}`), "alice", domain.RoleAdmin)
	expectHTTPError(t, h.StartDirect(c), http.StatusBadRequest)
}

func TestConversationHandler_StartDirect_Unauthenticated(t *testing.T) {
	h := NewConversationHandler(&stubConversationService{}, &stubApprovalService{})

	c, _ := newRequest(http.MethodPost, "/v1/conversations/direct", strings.NewReader(`{"target_id":"bob"}`), "", "")
	expectHTTPError(t, h.StartDirect(c), http.StatusUnauthorized)
}

func TestConversationHandler_StartDirect_PropagatesDomainError(t *testing.T) {
	stub := &stubConversationService{
		startDirectFn: func(ctx context.Context, requesterID, targetID string) (*ports.StartDirectResult, error) {
			return nil, domain.ErrSelfChat
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, _ := newRequest(http.MethodPost, "/v1/conversations/direct", strings.NewReader(`{"target_id":"alice"}`), "alice", domain.RoleAdmin)
	if err := h.StartDirect(c); !errors.Is(err, domain.ErrSelfChat) {
		t.Fatalf("expected ErrSelfChat, got %v", err)
	}
}

func TestConversationHandler_CreateGroup(t *testing.T) {
	stub := &stubConversationService{
		createGroupFn: func(ctx context.Context, in ports.CreateGroupInput) (*domain.Conversation, error) {
			if in.CreatorID != "alice" || in.Name != "Ops" || len(in.MemberIDs) != 1 || in.MemberIDs[0] != "bob" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return sampleGroup(), nil
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, rec := newRequest(http.MethodPost, "/v1/conversations/groups",
		strings.NewReader(`{"name":"Ops","member_ids":["bob"]}`), "alice", domain.RoleAdmin)
	if err := h.CreateGroup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp conversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Members) != 2 || resp.Members[0].Role != "admin" {
		t.Fatalf("unexpected members: %+v", resp.Members)
	}
}

func TestConversationHandler_CreateGroup_Validation(t *testing.T) {
	h := NewConversationHandler(&stubConversationService{}, &stubApprovalService{})

	cases := map[string]string{
		"no members":   `{"name":"Ops","member_ids":[]}`,
		"blank name":   `{"name":"   ","member_ids":["bob"]}`,
		"empty member": `{"name":"Ops","member_ids":[""]}`,
		"not json":     `not-json`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newRequest(http.MethodPost, "/v1/conversations/groups", strings.NewReader(body), "alice", domain.RoleAdmin)
			expectHTTPError(t, h.CreateGroup(c), http.StatusBadRequest)
		})
	}
}

func TestConversationHandler_Get_UsesPathID(t *testing.T) {
	stub := &stubConversationService{
		getFn: func(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error) {
			if actorID != "carol" || conversationID != "c1" {
				t.Fatalf("unexpected args: %s %s", actorID, conversationID)
			}
			return nil, domain.ErrForbidden
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, _ := newRequest(http.MethodGet, "/v1/conversations/c1", nil, "carol", domain.RoleEmployee)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConversationHandler_Rename(t *testing.T) {
	stub := &stubConversationService{
		renameFn: func(ctx context.Context, actorID, conversationID, newName string) (*domain.Conversation, error) {
			if newName != "Ops 2" {
				t.Fatalf("unexpected name %q", newName)
			}
			g := sampleGroup()
			g.Name = newName
			return g, nil
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, rec := newRequest(http.MethodPatch, "/v1/conversations/c1", strings.NewReader(`{"name":"Ops 2"}`), "alice", domain.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Rename(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Ops 2"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestConversationHandler_SetAvatar_RequiresRef(t *testing.T) {
	h := NewConversationHandler(&stubConversationService{}, &stubApprovalService{})

	c, _ := newRequest(http.MethodPut, "/v1/conversations/c1/avatar", strings.NewReader(`{}`), "alice", domain.RoleAdmin)
	expectHTTPError(t, h.SetAvatar(c), http.StatusBadRequest)
}

func TestConversationHandler_Approve(t *testing.T) {
	approvals := &stubApprovalService{
		approveFn: func(ctx context.Context, staffID, conversationID string) (*domain.Conversation, error) {
			if staffID != "eve" || conversationID != "d1" {
				t.Fatalf("unexpected args: %s %s", staffID, conversationID)
			}
			return &domain.Conversation{ID: "d1", Kind: domain.KindDirect, ApprovalStatus: domain.ApprovalApproved, ApprovedBy: "eve"}, nil
		},
	}
	h := NewConversationHandler(&stubConversationService{}, approvals)

	c, rec := newRequest(http.MethodPost, "/v1/conversations/d1/approve", nil, "eve", domain.RoleEmployee)
	c.SetParamNames("id")
	c.SetParamValues("d1")

	if err := h.Approve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"approved_by":"eve"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestConversationHandler_ListPending(t *testing.T) {
	approvals := &stubApprovalService{
		listPendingFn: func(ctx context.Context, staffID string) ([]*domain.Conversation, error) {
			return []*domain.Conversation{{ID: "d1"}, {ID: "d2"}}, nil
		},
	}
	h := NewConversationHandler(&stubConversationService{}, approvals)

	c, rec := newRequest(http.MethodGet, "/v1/conversations/pending", nil, "alice", domain.RoleAdmin)
	if err := h.ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp conversationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
}

func TestConversationHandler_List_EmptyIsArray(t *testing.T) {
	stub := &stubConversationService{
		listFn: func(ctx context.Context, userID string) ([]*domain.Conversation, error) {
			return nil, nil
		},
	}
	h := NewConversationHandler(stub, &stubApprovalService{})

	c, rec := newRequest(http.MethodGet, "/v1/conversations", nil, "bob", domain.RoleEmployee)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"items":[]}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
