// Package events carries order lifecycle notifications over Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const TypeOrderPaid = "order.paid"

// OrderPaid is published once per order after payment capture succeeds.
type OrderPaid struct {
	EventID    string    `json:"eventId"`
	OrderRef   string    `json:"orderRef"`
	UserID     int       `json:"userId"`
	ProductIDs []int     `json:"productIds"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewOrderPaid(orderRef string, userID int, productIDs []int) OrderPaid {
	return OrderPaid{
		EventID:    uuid.NewString(),
		OrderRef:   orderRef,
		UserID:     userID,
		ProductIDs: productIDs,
		OccurredAt: time.Now().UTC(),
	}
}

// Message keys the event by user so one buyer's events stay ordered.
func (e OrderPaid) Message() (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode order paid: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(e.UserID)),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeOrderPaid)},
			{Key: "event-id", Value: []byte(e.EventID)},
		},
	}, nil
}

func DecodeOrderPaid(m kafka.Message) (OrderPaid, error) {
	var e OrderPaid
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return OrderPaid{}, fmt.Errorf("decode order paid: %w", err)
	}
	if e.OrderRef == "" {
		return OrderPaid{}, fmt.Errorf("decode order paid: missing order ref")
	}
	return e, nil
}
