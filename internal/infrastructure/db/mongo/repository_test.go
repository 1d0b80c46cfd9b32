package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

func TestConversationDoc_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := &domain.Conversation{
		Kind:           domain.KindDirect,
		CreatedBy:      "dan",
		ApprovalStatus: domain.ApprovalPending,
		CreatedAt:      now,
		Members: []domain.Member{
			{UserID: "dan", Role: domain.MemberRoleMember, JoinedAt: now},
			{UserID: "eve", Role: domain.MemberRoleMember, JoinedAt: now},
		},
	}

	doc := toConversationDoc(c)
	if doc.PairKey != "dan:eve" {
		t.Errorf("expected pair key dan:eve, got %q", doc.PairKey)
	}

	doc.ID = primitive.NewObjectID()
	back := doc.toDomain()
	if back.ID != doc.ID.Hex() {
		t.Errorf("id not mapped: %q", back.ID)
	}
	if back.Members[1].ConversationID != back.ID || back.Members[1].UserID != "eve" {
		t.Errorf("members not mapped: %+v", back.Members)
	}
	if back.ApprovalStatus != domain.ApprovalPending {
		t.Errorf("status not mapped: %q", back.ApprovalStatus)
	}
}

func TestConversationDoc_GroupHasNoPairKey(t *testing.T) {
	doc := toConversationDoc(&domain.Conversation{
		Kind:    domain.KindGroup,
		Members: []domain.Member{{UserID: "a"}, {UserID: "b"}},
	})
	if doc.PairKey != "" {
		t.Errorf("groups must not carry a pair key, got %q", doc.PairKey)
	}
}

func TestByID_InvalidHexIsNotFound(t *testing.T) {
	if _, err := byID("not-an-object-id"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMemberFilter(t *testing.T) {
	id := primitive.NewObjectID()
	filter, err := addMemberFilter(id.Hex(), "alice", "bob", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filter["_id"] != id {
		t.Errorf("expected _id filter")
	}
	if filter["kind"] != string(domain.KindGroup) {
		t.Errorf("expected group filter, got %v", filter["kind"])
	}
	if _, ok := filter["members.499"]; !ok {
		t.Errorf("expected size guard on members.499, got %v", filter)
	}
	ne, ok := filter["members.user_id"].(bson.M)
	if !ok || ne["$ne"] != "bob" {
		t.Errorf("expected not-a-member guard, got %v", filter["members.user_id"])
	}
}

func TestRemoveMemberFilter_RequiresAnotherAdmin(t *testing.T) {
	filter, err := removeMemberFilter(primitive.NewObjectID().Hex(), "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	and, ok := filter["$and"].(bson.A)
	if !ok || len(and) != 2 {
		t.Fatalf("expected two $elemMatch clauses, got %v", filter["$and"])
	}
	other := and[1].(bson.M)["members"].(bson.M)["$elemMatch"].(bson.M)
	if other["role"] != string(domain.MemberRoleAdmin) {
		t.Errorf("second clause must look for an admin, got %v", other)
	}
	if other["user_id"].(bson.M)["$ne"] != "bob" {
		t.Errorf("the remaining admin must not be the removed member, got %v", other)
	}
}

func TestUserDoc_ResolutionPrecedence(t *testing.T) {
	cases := []struct {
		name string
		doc  userDoc
		want error
	}{
		{"active intern", userDoc{ID: "u1", Role: domain.RoleIntern, Active: true}, nil},
		{"inactive", userDoc{ID: "u2", Role: domain.RoleEmployee, Active: false}, domain.ErrUserNotFound},
		{"missing role", userDoc{ID: "u3", Active: true}, domain.ErrInvalidRole},
		{"unknown role", userDoc{ID: "u4", Role: "client", Active: true}, domain.ErrInvalidRole},
	}
	for _, tc := range cases {
		u, err := tc.doc.toDomain()
		if tc.want == nil {
			if err != nil || u.ID != tc.doc.ID {
				t.Errorf("%s: expected user, got %v / %v", tc.name, u, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRetryRead_RetriesTransientErrorOnce(t *testing.T) {
	calls := 0
	err := retryRead(func() error {
		calls++
		if calls == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = retryRead(func() error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 2 {
		t.Fatalf("expected two attempts then failure, got err=%v calls=%d", err, calls)
	}
}

func TestRetryRead_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := retryRead(func() error {
		calls++
		return errors.New("decode failed")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected a single attempt, got err=%v calls=%d", err, calls)
	}
}

func TestConfig_ClientOptions(t *testing.T) {
	opts := Config{URI: "mongodb://localhost:27017", AppName: "launchpad"}.clientOptions()

	if opts.ConnectTimeout == nil || *opts.ConnectTimeout != 10*time.Second {
		t.Errorf("expected default connect timeout, got %v", opts.ConnectTimeout)
	}
	if opts.AppName == nil || *opts.AppName != "launchpad" {
		t.Errorf("expected app name launchpad, got %v", opts.AppName)
	}
	if opts.ReadPreference == nil || opts.ReadPreference.Mode() != readpref.PrimaryMode {
		t.Errorf("reads must go to the primary, got %v", opts.ReadPreference)
	}

	custom := Config{URI: "mongodb://localhost:27017", ConnectTimeout: 2 * time.Second}.clientOptions()
	if *custom.ConnectTimeout != 2*time.Second {
		t.Errorf("expected 2s connect timeout, got %v", *custom.ConnectTimeout)
	}
}
