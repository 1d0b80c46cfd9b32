package service

import "time"

// Limits bounds what the messaging core accepts.
type Limits struct {
	MaxGroupMembers   int
	MaxGroupNameLen   int
	MaxMessageBytes   int
	DefaultPageSize   int
	MaxPageSize       int
	RemovalConfirmTTL time.Duration
}

// DefaultLimits returns the documented bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxGroupMembers:   500,
		MaxGroupNameLen:   120,
		MaxMessageBytes:   8192,
		DefaultPageSize:   50,
		MaxPageSize:       200,
		RemovalConfirmTTL: 5 * time.Minute,
	}
}

// pageSize clamps a requested page size into [1, MaxPageSize].
func (l Limits) pageSize(requested int) int {
	if requested <= 0 {
		return l.DefaultPageSize
	}
	if requested > l.MaxPageSize {
		return l.MaxPageSize
	}
	return requested
}
