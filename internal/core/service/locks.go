package service

import (
	"hash/fnv"
	"sync"
)

const defaultLockStripes = 64

// ConversationLocks serialises work per conversation using a fixed set of
// striped mutexes. Two conversations may share a stripe; a conversation
// always maps to the same one. Services that must order their events on a
// conversation topic share one instance.
type ConversationLocks struct {
	stripes []sync.Mutex
}

func NewConversationLocks(n int) *ConversationLocks {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &ConversationLocks{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *ConversationLocks) Lock(key string) func() {
	m := &l.stripes[l.index(key)]
	m.Lock()
	return m.Unlock
}

func (l *ConversationLocks) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}
