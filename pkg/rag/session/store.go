// Package session caches per-conversation state in process memory. The cache
// is a transient convenience: losing it only resets the formatted context of
// a conversation, never the correctness of a request.
package session

import (
	"time"

	"coax-rag-be/pkg/rag/conversation"

	gocache "github.com/patrickmn/go-cache"
)

// Store holds one conversation.Manager per conversation id, TTL-evicted.
type Store struct {
	cache      *gocache.Cache
	maxHistory int
}

func NewStore(maxHistory int, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		cache:      gocache.New(ttl, 2*ttl),
		maxHistory: maxHistory,
	}
}

// Get returns the manager for a conversation, creating it on first use.
// Concurrent first requests for the same id settle on a single manager.
func (s *Store) Get(conversationId string) *conversation.Manager {
	if v, found := s.cache.Get(conversationId); found {
		return v.(*conversation.Manager)
	}
	m := conversation.NewManager(s.maxHistory)
	if err := s.cache.Add(conversationId, m, gocache.DefaultExpiration); err != nil {
		// Lost the create race; use the winner's manager.
		if v, found := s.cache.Get(conversationId); found {
			return v.(*conversation.Manager)
		}
	}
	return m
}

// RecordExchange appends a completed exchange to the conversation's manager
// and refreshes its TTL.
func (s *Store) RecordExchange(conversationId, userInput, botResponse string) {
	m := s.Get(conversationId)
	m.AddExchange(userInput, botResponse)
	s.cache.SetDefault(conversationId, m)
}
