package core

import (
	"context"
	"time"
)

// User is a staff account allowed to operate the order desk.
type User struct {
	ID           int
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides staff account operations.
type UserService interface {
	// CreateUser stores a new active user with a bcrypt hash of password.
	CreateUser(ctx context.Context, username, password, role string) (*User, error)

	// Authenticate returns the active user whose password matches, or ErrNotFound.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)
}
