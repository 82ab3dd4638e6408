package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ConnID identifies a connection for the lifetime of the process.
type ConnID uint64

// Presence is a read-only view of one registered connection.
type Presence struct {
	ID   ConnID `json:"id"`
	Name string `json:"name"`
}

// Registry is the shared directory of online connections. Its four maps are
// always mutated together under mu, so an id is either fully registered
// (queue, name, reverse name, cancel) or absent.
type Registry struct {
	mu      sync.RWMutex
	queues  map[ConnID]*Outbox
	names   map[ConnID]string
	ids     map[string]ConnID
	cancels map[ConnID]context.CancelFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		queues:  make(map[ConnID]*Outbox),
		names:   make(map[ConnID]string),
		ids:     make(map[string]ConnID),
		cancels: make(map[ConnID]context.CancelFunc),
	}
}

// Register publishes a connection under name. It fails with ErrNameTaken when
// name already belongs to a different id.
func (r *Registry) Register(id ConnID, name string, out *Outbox, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.ids[name]; ok && owner != id {
		return fmt.Errorf("register %q: %w", name, ErrNameTaken)
	}

	r.queues[id] = out
	r.names[id] = name
	r.ids[name] = id
	r.cancels[id] = cancel
	return nil
}

// Deregister fires the connection's cancel handle and removes every mapping
// for id. It returns the name that was released; calling it again, or for an
// id that never registered, is a no-op.
func (r *Registry) Deregister(id ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}

	name, ok := r.names[id]
	if ok {
		delete(r.names, id)
		delete(r.ids, name)
	}
	delete(r.queues, id)
	return name, ok
}

// LookupByID returns the outbound queue of a registered connection.
func (r *Registry) LookupByID(id ConnID) (*Outbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.queues[id]
	return out, ok
}

// LookupByName resolves a nickname to its connection id.
func (r *Registry) LookupByName(name string) (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	return id, ok
}

// NameOf returns the nickname registered for id.
func (r *Registry) NameOf(id ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Deliver enqueues msg for id. The lock is released before enqueueing so a
// full target queue never blocks registry access for everyone else.
func (r *Registry) Deliver(ctx context.Context, id ConnID, msg string) error {
	out, ok := r.LookupByID(id)
	if !ok {
		return fmt.Errorf("deliver to %d: %w", id, ErrUndeliverable)
	}
	if err := out.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver to %d: %w", id, err)
	}
	return nil
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Online returns every registered connection ordered by id.
func (r *Registry) Online() []Presence {
	r.mu.RLock()
	list := make([]Presence, 0, len(r.names))
	for id, name := range r.names {
		list = append(list, Presence{ID: id, Name: name})
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
