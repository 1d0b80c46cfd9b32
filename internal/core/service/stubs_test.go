package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory conversation repository
// ---------------------------------------------------------------------------

// stubConvRepo mirrors the conditional writes of the Mongo repository: every
// mutation re-checks its precondition under the lock and reports
// domain.ErrPreconditionFailed when it does not hold.
type stubConvRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Conversation
	nextID int

	// beforeWrite, if set, runs before each conditional write with the lock
	// released; tests use it to interleave a competing change.
	beforeWrite func()
}

func newStubConvRepo() *stubConvRepo {
	return &stubConvRepo{byID: make(map[string]*domain.Conversation)}
}

func cloneConv(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.Members = append([]domain.Member(nil), c.Members...)
	return &out
}

func (r *stubConvRepo) Create(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Kind == domain.KindDirect && len(c.Members) == 2 {
		key := domain.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID)
		for _, existing := range r.byID {
			if existing.Kind == domain.KindDirect &&
				domain.DirectPairKey(existing.Members[0].UserID, existing.Members[1].UserID) == key {
				return domain.ErrDuplicateConversation
			}
		}
	}
	r.nextID++
	c.ID = fmt.Sprintf("conv-%d", r.nextID)
	stored := cloneConv(c)
	for i := range stored.Members {
		stored.Members[i].ConversationID = c.ID
	}
	r.byID[c.ID] = stored
	return nil
}

func (r *stubConvRepo) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return cloneConv(c), nil
}

func (r *stubConvRepo) FindDirect(_ context.Context, a, b string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.DirectPairKey(a, b)
	for _, c := range r.byID {
		if c.Kind == domain.KindDirect && domain.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID) == key {
			return cloneConv(c), nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

func (r *stubConvRepo) ListByMember(_ context.Context, userID string) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.byID {
		if c.IsMember(userID) {
			out = append(out, cloneConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubConvRepo) ListPending(_ context.Context, memberID string) ([]*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range r.byID {
		if c.ApprovalStatus != domain.ApprovalPending {
			continue
		}
		if memberID != "" && !c.IsMember(memberID) {
			continue
		}
		out = append(out, cloneConv(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mutate runs fn on the stored conversation under the lock.
func (r *stubConvRepo) mutate(id string, fn func(c *domain.Conversation) bool) error {
	if r.beforeWrite != nil {
		hook := r.beforeWrite
		r.beforeWrite = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrPreconditionFailed
	}
	if !fn(c) {
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *stubConvRepo) Approve(_ context.Context, id, staffID string, _ time.Time) error {
	return r.mutate(id, func(c *domain.Conversation) bool {
		if c.ApprovalStatus != domain.ApprovalPending {
			return false
		}
		c.ApprovalStatus = domain.ApprovalApproved
		c.ApprovedBy = staffID
		return true
	})
}

func (r *stubConvRepo) UpdateProfile(_ context.Context, id, actorID string, upd ports.ProfileUpdate) error {
	return r.mutate(id, func(c *domain.Conversation) bool {
		if c.Kind != domain.KindGroup || !c.IsAdmin(actorID) {
			return false
		}
		if upd.Name != nil {
			c.Name = *upd.Name
		}
		if upd.Description != nil {
			c.Description = *upd.Description
		}
		if upd.AvatarRef != nil {
			c.AvatarRef = *upd.AvatarRef
		}
		return true
	})
}

func (r *stubConvRepo) AddMember(_ context.Context, id, actorID string, m domain.Member, maxMembers int) error {
	return r.mutate(id, func(c *domain.Conversation) bool {
		if c.Kind != domain.KindGroup || !c.IsAdmin(actorID) || c.IsMember(m.UserID) {
			return false
		}
		if maxMembers > 0 && len(c.Members) >= maxMembers {
			return false
		}
		c.Members = append(c.Members, m)
		return true
	})
}

func (r *stubConvRepo) RemoveMember(_ context.Context, id, actorID, memberID string) error {
	return r.mutate(id, func(c *domain.Conversation) bool {
		if c.Kind != domain.KindGroup || !c.IsAdmin(actorID) {
			return false
		}
		idx := -1
		otherAdmins := 0
		for i, m := range c.Members {
			if m.UserID == memberID {
				idx = i
			} else if m.Role == domain.MemberRoleAdmin {
				otherAdmins++
			}
		}
		if idx < 0 || otherAdmins == 0 {
			return false
		}
		c.Members = append(c.Members[:idx], c.Members[idx+1:]...)
		return true
	})
}

func (r *stubConvRepo) PromoteMember(_ context.Context, id, actorID, memberID string) error {
	return r.mutate(id, func(c *domain.Conversation) bool {
		if c.Kind != domain.KindGroup || !c.IsAdmin(actorID) {
			return false
		}
		for i := range c.Members {
			if c.Members[i].UserID == memberID {
				c.Members[i].Role = domain.MemberRoleAdmin
				return true
			}
		}
		return false
	})
}

func (r *stubConvRepo) ReserveSeq(_ context.Context, id, senderID string) (ports.SeqReservation, error) {
	var res ports.SeqReservation
	err := r.mutate(id, func(c *domain.Conversation) bool {
		if !c.IsMember(senderID) || c.ApprovalStatus != domain.ApprovalApproved {
			return false
		}
		c.LastSeq++
		res = ports.SeqReservation{Seq: c.LastSeq, Kind: c.Kind}
		return true
	})
	return res, err
}

// ---------------------------------------------------------------------------
// In-memory message and notification repositories
// ---------------------------------------------------------------------------

type stubMessageRepo struct {
	mu     sync.Mutex
	byConv map[string][]*domain.Message
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{byConv: make(map[string][]*domain.Message)}
}

func (r *stubMessageRepo) Insert(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *m
	r.byConv[m.ConversationID] = append(r.byConv[m.ConversationID], &clone)
	return nil
}

func (r *stubMessageRepo) sorted(conversationID string) []*domain.Message {
	msgs := append([]*domain.Message(nil), r.byConv[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })
	return msgs
}

func (r *stubMessageRepo) ListBefore(_ context.Context, conversationID string, beforeSeq int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var window []*domain.Message
	for _, m := range r.sorted(conversationID) {
		if beforeSeq <= 0 || m.Seq <= beforeSeq {
			window = append(window, m)
		}
	}
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}

func (r *stubMessageRepo) ListAfter(_ context.Context, conversationID string, afterSeq int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.sorted(conversationID) {
		if m.Seq > afterSeq && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

type stubNotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (r *stubNotificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *n
	r.items = append(r.items, &clone)
	return nil
}

func (r *stubNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.items[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, it := range r.items {
		if it.UserID == userID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id && it.UserID == userID {
			it.IsRead = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (r *stubNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, it := range r.items {
		if it.UserID == userID && !it.IsRead {
			it.IsRead = true
			n++
		}
	}
	return n, nil
}

// forUser returns the stored notifications of userID in insertion order.
func (r *stubNotificationRepo) forUser(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, *it)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Identity, publisher and confirmation stubs
// ---------------------------------------------------------------------------

type stubIdentity struct {
	users map[string]*domain.User
}

func newStubIdentity(users ...domain.User) *stubIdentity {
	s := &stubIdentity{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		s.users[u.ID] = &u
	}
	return s
}

func (s *stubIdentity) ResolveUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *stubIdentity) ResolveUsers(_ context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			clone := *u
			out[id] = &clone
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Enqueue(evt domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type stubConfirmations struct {
	mu    sync.Mutex
	items map[string]ports.RemovalRequest
}

func newStubConfirmations() *stubConfirmations {
	return &stubConfirmations{items: make(map[string]ports.RemovalRequest)}
}

func (s *stubConfirmations) Save(_ context.Context, req ports.RemovalRequest, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[req.Token] = req
	return nil
}

func (s *stubConfirmations) Take(_ context.Context, token, actorID string) (*ports.RemovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[token]
	if !ok {
		return nil, domain.ErrConfirmationNotFound
	}
	if req.ActorID != actorID {
		return nil, domain.ErrForbidden
	}
	delete(s.items, token)
	return &req, nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var (
	alice = domain.User{ID: "alice", DisplayName: "Alice", Role: domain.RoleAdmin}
	bob   = domain.User{ID: "bob", DisplayName: "Bob", Role: domain.RoleEmployee}
	carol = domain.User{ID: "carol", DisplayName: "Carol", Role: domain.RoleEmployee}
	dan   = domain.User{ID: "dan", DisplayName: "Dan", Role: domain.RoleIntern}
	eve   = domain.User{ID: "eve", DisplayName: "Eve", Role: domain.RoleEmployee}
	frank = domain.User{ID: "frank", DisplayName: "Frank", Role: domain.RoleIntern}
)

type fixture struct {
	convs         *stubConvRepo
	messages      *stubMessageRepo
	notifications *stubNotificationRepo
	identity      *stubIdentity
	publisher     *recordingPublisher
	confirmations *stubConfirmations
	locks         *ConversationLocks

	conversations *ConversationService
	approvals     *ApprovalGate
	membership    *MembershipService
	messaging     *MessageService
	notifier      *NotificationService
}

func newFixture() *fixture {
	f := &fixture{
		convs:         newStubConvRepo(),
		messages:      newStubMessageRepo(),
		notifications: &stubNotificationRepo{},
		identity:      newStubIdentity(alice, bob, carol, dan, eve, frank),
		publisher:     &recordingPublisher{},
		confirmations: newStubConfirmations(),
		locks:         NewConversationLocks(8),
	}
	limits := DefaultLimits()
	log := discardLogger

	f.notifier = NewNotificationService(f.notifications, f.publisher, limits, log)
	f.conversations = NewConversationService(f.convs, f.identity, f.notifier, f.publisher, limits, log)
	f.approvals = NewApprovalGate(f.convs, f.identity, f.notifier, f.publisher, log)
	f.membership = NewMembershipService(f.convs, f.identity, f.notifier, f.publisher, f.confirmations, f.locks, limits, log)
	f.messaging = NewMessageService(f.convs, f.messages, f.identity, f.publisher, f.locks, limits, log)
	return f
}
