package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by the core wraps exactly one of these
// roots so the transport layer can map it with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("access forbidden")
	ErrNotApproved      = errors.New("conversation is awaiting approval")
	ErrSelfChat         = errors.New("cannot start a conversation with yourself")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrLastAdmin        = errors.New("group must keep at least one admin")
	ErrInvalidRole      = errors.New("unknown user role")
)

var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrMemberNotFound       = fmt.Errorf("member %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrConfirmationNotFound = fmt.Errorf("confirmation %w", ErrNotFound)

	ErrEmptyGroupName   = fmt.Errorf("%w: group name is required", ErrInvalidOperation)
	ErrGroupNameTooLong = fmt.Errorf("%w: group name is too long", ErrInvalidOperation)
	ErrNoMembers        = fmt.Errorf("%w: at least one member is required", ErrInvalidOperation)
	ErrGroupTooLarge    = fmt.Errorf("%w: group member limit reached", ErrInvalidOperation)
	ErrSelfRemoval      = fmt.Errorf("%w: use leave to remove yourself", ErrInvalidOperation)
	ErrEmptyMessage     = fmt.Errorf("%w: message needs a body or an attachment", ErrInvalidOperation)
	ErrMessageTooLong   = fmt.Errorf("%w: message body is too long", ErrInvalidOperation)
	ErrNotGroup         = fmt.Errorf("%w: conversation is not a group", ErrForbidden)
)

// Storage-level signals. They never reach the API boundary: services resolve
// them by re-reading state.
var (
	// ErrDuplicateConversation means the unique direct-pair constraint fired.
	ErrDuplicateConversation = errors.New("direct conversation already exists")
	// ErrPreconditionFailed means a conditional write matched no document.
	ErrPreconditionFailed = errors.New("write precondition no longer holds")
)
