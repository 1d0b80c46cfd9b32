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

func TestMessageHandler_Append(t *testing.T) {
	stub := &stubMessageService{
		appendFn: func(ctx context.Context, in ports.AppendMessageInput) (*domain.Message, error) {
			if in.SenderID != "bob" || in.ConversationID != "c1" || in.Body != "hi" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.Message{ID: "m1", ConversationID: "c1", Seq: 3, SenderID: "bob", Body: "hi"}, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := newRequest(http.MethodPost, "/v1/conversations/c1/messages", strings.NewReader(`{"body":"hi"}`), "bob", domain.RoleEmployee)
	c.SetParamNames("id")
	c.SetParamValues("c1")

	if err := h.Append(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Seq != 3 || resp.Body != "hi" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestMessageHandler_Append_NotApproved(t *testing.T) {
	stub := &stubMessageService{
		appendFn: func(ctx context.Context, in ports.AppendMessageInput) (*domain.Message, error) {
			return nil, domain.ErrNotApproved
		},
	}
	h := NewMessageHandler(stub)

	c, _ := newRequest(http.MethodPost, "/v1/conversations/d1/messages", strings.NewReader(`{"body":"hi"}`), "dan", domain.RoleIntern)
	if err := h.Append(c); !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
}

func TestMessageHandler_List_Before(t *testing.T) {
	stub := &stubMessageService{
		listFn: func(ctx context.Context, in ports.ListMessagesInput) ([]*domain.Message, error) {
			if in.Before != 40 || in.Limit != 20 || in.ActorID != "bob" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return []*domain.Message{{Seq: 39}, {Seq: 40}}, nil
		},
		listSinceFn: func(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
			t.Fatalf("ListSince should not be called")
			return nil, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := newRequest(http.MethodGet, "/v1/conversations/c1/messages?before=40&limit=20", nil, "bob", domain.RoleEmployee)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp messageListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Seq != 39 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestMessageHandler_List_AfterUsesListSince(t *testing.T) {
	called := false
	stub := &stubMessageService{
		listSinceFn: func(ctx context.Context, actorID, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
			called = true
			if afterSeq != 0 {
				t.Fatalf("expected after=0, got %d", afterSeq)
			}
			return nil, nil
		},
	}
	h := NewMessageHandler(stub)

	c, _ := newRequest(http.MethodGet, "/v1/conversations/c1/messages?after=0", nil, "bob", domain.RoleEmployee)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("expected ListSince to be called")
	}
}

func TestMessageHandler_List_InvalidQuery(t *testing.T) {
	h := NewMessageHandler(&stubMessageService{})

	c, _ := newRequest(http.MethodGet, "/v1/conversations/c1/messages?limit=ten", nil, "bob", domain.RoleEmployee)
	expectHTTPError(t, h.List(c), http.StatusBadRequest)
}
