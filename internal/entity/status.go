package entity

import (
	"errors"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusApproved OrderStatus = "approved"
	StatusVoided   OrderStatus = "voided"
)

// ErrInvalidStatus is returned by ParseStatus for unrecognised values.
var ErrInvalidStatus = errors.New("invalid order status")

var validStatuses = map[OrderStatus]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusVoided:   true,
}

// legacy spellings still sent by older clients
var statusAliases = map[string]OrderStatus{
	"pendiente": StatusPending,
	"aprobado":  StatusApproved,
	"anulado":   StatusVoided,
}

// Statuses lists every status in display order.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusApproved, StatusVoided}
}

// ParseStatus normalises raw into a canonical status. Matching is case-insensitive.
func ParseStatus(raw string) (OrderStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s := OrderStatus(key); validStatuses[s] {
		return s, nil
	}
	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Valid reports whether s is a canonical status.
func (s OrderStatus) Valid() bool {
	return validStatuses[s]
}

func (s OrderStatus) String() string {
	return string(s)
}
