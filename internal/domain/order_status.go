package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo lists the forward-only edges of the order lifecycle.
func CanTransitionTo(from, to OrderStatus) bool {
	switch from {
	case OrderStatusCreated:
		return to == OrderStatusPaid
	case OrderStatusPaid:
		return to == OrderStatusDelivered
	}
	return false
}

// Actor is the authenticated identity issuing a command.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Command is a transition request for an order. The set is closed: only the
// types in this file implement it.
type Command interface {
	Name() string
	command()
}

type MarkPaid struct {
	Result PaymentResult
	At     time.Time
}

func (MarkPaid) Name() string { return "pay" }
func (MarkPaid) command()     {}

type MarkDelivered struct {
	Actor Actor
	At    time.Time
}

func (MarkDelivered) Name() string { return "deliver" }
func (MarkDelivered) command()     {}

// Apply runs cmd against the order. changed is false when the command was a
// no-op (paying a paid order, delivering a delivered one).
func (o *Order) Apply(cmd Command) (changed bool, err error) {
	switch c := cmd.(type) {
	case MarkPaid:
		if o.IsPaid {
			return false, nil
		}
		if !CanTransitionTo(o.Status(), OrderStatusPaid) {
			return false, &InvalidStateError{From: o.Status(), Command: c.Name()}
		}
		at := c.At
		result := c.Result
		o.IsPaid = true
		o.PaidAt = &at
		o.PaymentResult = &result
		o.UpdatedAt = at
		return true, nil

	case MarkDelivered:
		if !c.Actor.IsAdmin {
			return false, &AuthorizationError{Action: "deliver orders"}
		}
		if o.IsDelivered {
			return false, nil
		}
		if !CanTransitionTo(o.Status(), OrderStatusDelivered) {
			return false, &InvalidStateError{From: o.Status(), Command: c.Name()}
		}
		at := c.At
		o.IsDelivered = true
		o.DeliveredAt = &at
		o.UpdatedAt = at
		return true, nil

	default:
		return false, fmt.Errorf("unknown order command %T", cmd)
	}
}
