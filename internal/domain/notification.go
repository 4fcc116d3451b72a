package domain

import "time"

// Notification is the durable record of one observed sale message.
type Notification struct {
	ID           string
	EventID      string
	OrganizerSub string
	BuyerSub     string
	Code         string
	CreatedAt    time.Time
}
