package service

import "github.com/sajian-pos/api/internal/database"

// Notifier receives domain events after the transaction that produced them
// has committed. Implementations must not block.
type Notifier interface {
	OrderCreated(order database.Order)
	OrderUpdated(order database.Order)
	OrderCompleted(order database.Order)
	OrderCancelled(order database.Order)
	PaymentProcessed(order database.Order, payment database.Payment)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) OrderCreated(database.Order)                       {}
func (NopNotifier) OrderUpdated(database.Order)                       {}
func (NopNotifier) OrderCompleted(database.Order)                     {}
func (NopNotifier) OrderCancelled(database.Order)                     {}
func (NopNotifier) PaymentProcessed(database.Order, database.Payment) {}
