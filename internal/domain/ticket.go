package domain

import "time"

// Ticket is a single admission to an event, identified at the door by Code.
type Ticket struct {
	ID          string
	EventID     string
	BuyerSub    string
	Code        string
	PurchasedAt time.Time
	UsedAt      *time.Time
	UsedBy      string

	// Event is populated by listings that join the owning event.
	Event *Event
}

// Used reports whether the ticket has already been scanned.
func (t Ticket) Used() bool {
	return t.UsedAt != nil
}

// Sale describes a completed admission for downstream consumers.
type Sale struct {
	EventID      string
	OrganizerSub string
	BuyerSub     string
	Code         string
	CreatedAt    time.Time
}
