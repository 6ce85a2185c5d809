package auth

import (
	"github.com/stocktrack/stocktrack/internal/shared"
)

// User carries the credential fields needed to authenticate.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         shared.Role
	PasswordHash string
	IsActive     bool
}
