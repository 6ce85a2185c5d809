package users

import (
	"time"

	"github.com/stocktrack/stocktrack/internal/shared"
)

// User represents a staff or admin account.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      shared.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
