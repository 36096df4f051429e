package orders

import "github.com/ariefcatur/go-saga-orders/internal/saga"

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusCreated:   {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal statuses never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Wire maps the aggregate status to its order-events status.
func (s Status) Wire() saga.OrderStatus {
	switch s {
	case StatusCompleted:
		return saga.StatusOrderCompleted
	case StatusCancelled:
		return saga.StatusOrderCancelled
	default:
		return saga.StatusOrderCreated
	}
}
