package source

import (
	"context"
	"sync"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// MemorySource holds a document set by the embedding program. Every Update
// notifies observers with a child-list mutation at the new address.
type MemorySource struct {
	mu        sync.Mutex
	html      string
	address   string
	observers map[int]MutationFunc
	nextID    int
	closed    bool
}

var _ Source = (*MemorySource)(nil)

func NewMemorySource(html string, address string) *MemorySource {
	return &MemorySource{
		html:      html,
		address:   address,
		observers: map[int]MutationFunc{},
	}
}

func (m *MemorySource) Snapshot(_ context.Context) (*dom.Document, error) {
	m.mu.Lock()
	html, address, closed := m.html, m.address, m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrSourceClosed
	}
	return dom.ParseString(html, address)
}

// Update replaces the document.
func (m *MemorySource) Update(html string, address string) {
	m.mu.Lock()
	m.html = html
	m.address = address
	m.mu.Unlock()
	m.Notify(Mutation{Kind: ChildList, Address: address})
}

// Notify delivers a batch to every observer without changing the document.
func (m *MemorySource) Notify(batch ...Mutation) {
	m.mu.Lock()
	fns := make([]MutationFunc, 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}

// Observers counts the live subscriptions.
func (m *MemorySource) Observers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

func (m *MemorySource) Observe(_ context.Context, _ string, fn MutationFunc) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrSourceClosed
	}
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	return subscriptionFunc(func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
		return nil
	}), nil
}

func (m *MemorySource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.observers = map[int]MutationFunc{}
	return nil
}
