// Package memory provides conversation history storage for chat agents.
// The default implementation is a volatile process local store; persistent
// backends can implement Store and be injected where history is needed.
package memory

import (
	"sync"

	"github.com/hupe1980/agentlink/model"
)

// Store is the conversation history contract used by chat agents. Histories
// are keyed by a conversation id so one agent can serve many sessions.
type Store interface {
	// Append adds messages to the end of a conversation's history.
	Append(conversationID string, msgs ...model.Message) error

	// Messages returns a copy of the conversation's history in order.
	Messages(conversationID string) ([]model.Message, error)

	// Clear removes a conversation's history entirely.
	Clear(conversationID string) error
}

// InMemoryStore is a volatile Store implementation keeping histories in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo setups. Returned slices are copies to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]model.Message
}

// NewInMemoryStore constructs an empty in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{messages: make(map[string][]model.Message)}
}

// Append adds messages to the conversation, creating it lazily.
func (s *InMemoryStore) Append(conversationID string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], msgs...)
	return nil
}

// Messages returns a copy of the conversation's history in order.
func (s *InMemoryStore) Messages(conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.messages[conversationID]
	out := make([]model.Message, len(history))
	copy(out, history)
	return out, nil
}

// Clear removes a conversation's history entirely.
func (s *InMemoryStore) Clear(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, conversationID)
	return nil
}
