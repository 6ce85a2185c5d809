package requests

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the approval state of a stock request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// Valid reports whether s is a known request status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// StockRequest asks for one unit (or an unbound quantity) of a product.
type StockRequest struct {
	ID             int64     `json:"id"`
	Ref            uuid.UUID `json:"ref"`
	ProductID      int64     `json:"product_id"`
	RequesterID    int64     `json:"requester_id"`
	SerialNumberID *int64    `json:"serial_number_id,omitempty"`
	Quantity       int       `json:"quantity"`
	Status         Status    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	ApproverID     *int64    `json:"approver_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	ErrNotFound           = errors.New("requests: stock request not found")
	ErrInvalidState       = errors.New("requests: invalid state for operation")
	ErrMissingReason      = errors.New("requests: rejection reason required")
	ErrUnavailableSerials = errors.New("requests: serial numbers unavailable")
	ErrForbidden          = errors.New("requests: operation not allowed for user")
	ErrValidation         = errors.New("requests: invalid input")
	ErrProductNotFound    = errors.New("requests: product not found")
)
