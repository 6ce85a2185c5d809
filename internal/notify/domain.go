package notify

import (
	"errors"
	"time"

	"github.com/stocktrack/stocktrack/internal/shared"
)

// Type classifies a notification.
type Type string

const (
	TypeStockAlert    Type = "STOCK_ALERT"
	TypeRequestUpdate Type = "REQUEST_UPDATE"
	TypeSystem        Type = "SYSTEM"
)

// Notification is one broadcast message. Read is the per-viewer flag and is
// only populated on list reads.
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	ProductID *int64    `json:"product_id,omitempty"`
	RequestID *int64    `json:"request_id,omitempty"`
	SenderID  *int64    `json:"sender_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// Input carries everything needed to send one notification.
type Input struct {
	Title      string
	Message    string
	Type       Type
	ProductID  *int64
	RequestID  *int64
	SenderID   *int64
	Recipients Recipients
}

type recipientKind int

const (
	kindExplicit recipientKind = iota
	kindAllWithRole
	kindAllExcept
)

// Recipients selects who receives a notification. Construct with Explicit,
// AllWithRole or AllExcept.
type Recipients struct {
	kind     recipientKind
	ids      []int64
	role     shared.Role
	exceptID int64
}

// Explicit targets the given user ids.
func Explicit(ids ...int64) Recipients {
	return Recipients{kind: kindExplicit, ids: ids}
}

// AllWithRole targets every active user holding the role.
func AllWithRole(role shared.Role) Recipients {
	return Recipients{kind: kindAllWithRole, role: role}
}

// AllExcept targets every active user except one.
func AllExcept(userID int64) Recipients {
	return Recipients{kind: kindAllExcept, exceptID: userID}
}

var (
	ErrNotFound     = errors.New("notify: notification not found")
	ErrNoRecipients = errors.New("notify: no recipients resolved")
	ErrValidation   = errors.New("notify: invalid input")
)
