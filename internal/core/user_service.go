package core

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	store Store
}

// NewUserService constructs a UserService on top of the given store.
func NewUserService(store Store) UserService {
	return &userService{store: store}
}

func (s *userService) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, Invalid("username", "username is required")
	}
	if len(password) < 8 {
		return nil, Invalid("password", "must be at least 8 characters")
	}
	if role == "" {
		role = "staff"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: string(hash), Role: role, IsActive: true}
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertUser(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var u *User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		u, err = tx.GetUserByUsername(ctx, strings.TrimSpace(username))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	var u *User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		u, err = tx.GetUserByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("user id=%d: %w", userID, err)
	}
	return u, nil
}
