package domain

import "time"

// Event is a ticketed event with a single pool of capacity.
// Invariant: 0 <= TicketsSold <= TotalTickets.
type Event struct {
	ID           string
	Name         string
	Description  string
	Location     string
	StartsAt     time.Time
	TotalTickets int
	TicketsSold  int
	CreatedBy    string
	CreatedAt    time.Time
}

// RemainingTickets never reports a negative count.
func (e Event) RemainingTickets() int {
	if e.TicketsSold >= e.TotalTickets {
		return 0
	}
	return e.TotalTickets - e.TicketsSold
}

// SoldOut reports whether another admission would exceed capacity.
func (e Event) SoldOut() bool {
	return e.TicketsSold >= e.TotalTickets
}
