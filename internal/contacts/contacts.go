// Package contacts defines the trusted-contacts capability supplied by
// the host platform. Lookups may fail (permission denied, provider down);
// a failure is always treated as "not a contact", never as an error that
// blocks the call decision.
package contacts

import (
	"context"
	"sync"
)

// Resolver answers whether a normalized number belongs to a known contact.
type Resolver interface {
	IsKnownContact(ctx context.Context, number string) (bool, error)
	DisplayNameFor(ctx context.Context, number string) (string, bool)
}

// StaticResolver is a Resolver over a fixed in-memory contact set.
// Used in demo mode and tests; production deployments plug in the
// platform's address book behind the same interface.
type StaticResolver struct {
	mu       sync.RWMutex
	contacts map[string]string // number → display name
}

// NewStaticResolver creates a resolver with the given contacts.
func NewStaticResolver(contacts map[string]string) *StaticResolver {
	if contacts == nil {
		contacts = make(map[string]string)
	}
	return &StaticResolver{contacts: contacts}
}

// Add registers a contact.
func (s *StaticResolver) Add(number, name string) {
	s.mu.Lock()
	s.contacts[number] = name
	s.mu.Unlock()
}

func (s *StaticResolver) IsKnownContact(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.contacts[number]
	return ok, nil
}

func (s *StaticResolver) DisplayNameFor(ctx context.Context, number string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.contacts[number]
	return name, ok
}
