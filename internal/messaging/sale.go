// Package messaging carries completed sales between the ticketing and
// notification services over an AMQP queue. Delivery is best effort: the
// publisher does not await confirmation and the ingester acknowledges every
// message it has tried to store.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventflow/platform/internal/domain"
)

// DefaultQueue is the queue sales are published to.
const DefaultQueue = "ticket_booked"

var ErrMalformedMessage = errors.New("malformed sale message")

type saleMessage struct {
	EventID      string    `json:"event_id"`
	OrganizerSub string    `json:"organizer_sub"`
	BuyerSub     string    `json:"buyer_sub"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
}

func EncodeSale(sale domain.Sale) ([]byte, error) {
	return json.Marshal(saleMessage{
		EventID:      sale.EventID,
		OrganizerSub: sale.OrganizerSub,
		BuyerSub:     sale.BuyerSub,
		Code:         sale.Code,
		CreatedAt:    sale.CreatedAt.UTC(),
	})
}

// DecodeSale parses a message body. Field validation is left to the
// recorder; only undecodable bodies fail here.
func DecodeSale(body []byte) (domain.Sale, error) {
	var msg saleMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.Sale{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return domain.Sale{
		EventID:      msg.EventID,
		OrganizerSub: msg.OrganizerSub,
		BuyerSub:     msg.BuyerSub,
		Code:         msg.Code,
		CreatedAt:    msg.CreatedAt,
	}, nil
}
