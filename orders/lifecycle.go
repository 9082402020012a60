// Package orders owns the franchise order lifecycle: admission at checkout,
// the status graph, and the loyalty side effects of status changes.
package orders

import "github.com/Kariqs/franchise-api/models"

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:      {models.OrderPacking},
	models.OrderPacking:   {models.OrderShipped},
	models.OrderShipped:   {models.OrderDelivered},
}

// CanTransition reports whether from → to is an edge of the status graph.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), transitions[s]...)
}
