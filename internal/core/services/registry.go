package services

import (
	"fmt"
	"sync"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// TicketRegistry is the in-memory routing table: user ID -> open ticket.
// It is the only shared mutable structure in the core; only the lifecycle
// open/close transitions mutate it.
type TicketRegistry struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

var _ ports.TicketRegistry = (*TicketRegistry)(nil)

// NewTicketRegistry creates an empty registry.
func NewTicketRegistry() *TicketRegistry {
	return &TicketRegistry{
		tickets: make(map[string]*domain.Ticket),
	}
}

// Lookup returns the user's open ticket, or nil.
func (r *TicketRegistry) Lookup(userID string) *domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tickets[userID]
}

// Register inserts a new open ticket for its user. A second open ticket
// for the same user is a conflict: callers serialize per user, so hitting
// this path indicates a concurrency-control bug upstream.
func (r *TicketRegistry) Register(ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tickets[ticket.UserID]; ok {
		return fmt.Errorf("%w: user %s ticket %s", apperrors.ErrTicketConflict, ticket.UserID, existing.ID)
	}
	r.tickets[ticket.UserID] = ticket
	return nil
}

// Remove deletes the user's mapping. Removing an absent entry is a no-op.
func (r *TicketRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, userID)
}

// Len reports the number of active mappings. Used by the readiness probe.
func (r *TicketRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}
