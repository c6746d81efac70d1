package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/entity"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransition reports whether an order may move from one status to another.
// Every canonical target is reachable from every state.
func CanTransition(from, to entity.OrderStatus) bool {
	return to.Valid()
}

// Apply moves order to status to. Entering approved from another state stamps
// actor and now as the approval; re-approving or leaving approved keeps the
// recorded stamp. It reports whether a new approval was stamped.
func Apply(order *entity.Order, to entity.OrderStatus, actor auth.Identity, now time.Time) (bool, error) {
	from := order.Status
	if !CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	stamped := false
	if to == entity.StatusApproved && from != entity.StatusApproved {
		approver := actor.UserID
		at := now.UTC()
		order.ApproverID = &approver
		order.ApprovedAt = &at
		stamped = true
	}
	order.Status = to
	return stamped, nil
}
