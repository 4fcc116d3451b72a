package domain

import "time"

// Ban forbids a buyer identity from purchasing tickets.
type Ban struct {
	BuyerSub  string
	Reason    string
	CreatedAt time.Time
}
