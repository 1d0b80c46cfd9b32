package domain

import "time"

// EventType names what happened; it is the discriminator on the wire.
type EventType string

const (
	EventMessageCreated       EventType = "message.created"
	EventMemberAdded          EventType = "member.added"
	EventMemberRemoved        EventType = "member.removed"
	EventMemberPromoted       EventType = "member.promoted"
	EventConversationApproved EventType = "conversation.approved"
	EventConversationUpdated  EventType = "conversation.updated"
	EventNotificationCreated  EventType = "notification.created"
)

// Event is what the realtime bus carries. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type           EventType     `json:"type"`
	Topic          string        `json:"topic"`
	ConversationID string        `json:"conversation_id,omitempty"`
	ActorID        string        `json:"actor_id,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	Member         *Member       `json:"member,omitempty"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
	At             time.Time     `json:"at"`
}

// ConversationTopic is the bus topic carrying a conversation's events.
func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}

// UserTopic is the bus topic carrying a user's notifications.
func UserTopic(userID string) string {
	return "user:" + userID
}
