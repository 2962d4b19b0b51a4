package ws

import (
	"encoding/json"
	"log"

	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/service"
)

// Notifier publishes domain events onto the hub's topic rooms.
// Satisfies service.Notifier.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

type orderEvent struct {
	OrderID       string `json:"order_id"`
	OrderNumber   int32  `json:"order_number"`
	OrderType     string `json:"order_type"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Total         string `json:"total"`
}

type paymentEvent struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Method    string `json:"method"`
	Amount    string `json:"amount"`
}

func (n *Notifier) publish(eventType string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	n.hub.Broadcast(TopicOrders, Event{Type: eventType, Payload: payload})
}

func orderPayload(o database.Order) orderEvent {
	total, _ := o.Total.Value()
	totalStr, _ := total.(string)
	return orderEvent{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		OrderType:     o.OrderType,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         totalStr,
	}
}

func (n *Notifier) OrderCreated(o database.Order)   { n.publish("order.created", orderPayload(o)) }
func (n *Notifier) OrderUpdated(o database.Order)   { n.publish("order.updated", orderPayload(o)) }
func (n *Notifier) OrderCompleted(o database.Order) { n.publish("order.completed", orderPayload(o)) }
func (n *Notifier) OrderCancelled(o database.Order) { n.publish("order.cancelled", orderPayload(o)) }

func (n *Notifier) PaymentProcessed(o database.Order, p database.Payment) {
	amount, _ := p.Amount.Value()
	amountStr, _ := amount.(string)
	n.publish("payment.processed", paymentEvent{
		OrderID:   o.ID.String(),
		PaymentID: p.ID.String(),
		Method:    p.Method,
		Amount:    amountStr,
	})
}

var _ service.Notifier = (*Notifier)(nil)
