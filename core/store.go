package core

// Store holds a node's exported state: the key/value pairs it currently makes
// visible to its consumers. Nil values are never stored; setting a key to nil
// removes it. A Store is private to its owning node and, like the rest of the
// graph, is not safe for concurrent use.
type Store struct {
	values map[string]any
}

// NewStore constructs an empty value store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Set upserts a value under key. A nil value deletes any existing entry
// instead, so nil never becomes visible to consumers. Idempotent.
func (s *Store) Set(key string, value any) {
	if value == nil {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Get returns the value stored under key and whether it is present.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of currently exported entries.
func (s *Store) Len() int { return len(s.values) }

// Exports returns a shallow copy of all currently set entries. Mutating the
// returned map does not affect the store.
func (s *Store) Exports() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
