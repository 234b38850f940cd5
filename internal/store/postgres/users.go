package postgres

import (
	"context"
	"fmt"

	"order-desk/internal/core"
)

const userColumns = `id, username, password_hash, role, is_active, created_at`

func scanUser(row scanner, u *core.User) error {
	return row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
}

func (t *tx) InsertUser(ctx context.Context, u *core.User) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.Username, u.PasswordHash, u.Role, u.IsActive).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return classify(fmt.Errorf("failed to insert user %q: %w", u.Username, err))
	}
	return nil
}

func (t *tx) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	if err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username), &u); err != nil {
		return nil, notFound("user", username, err)
	}
	return &u, nil
}

func (t *tx) GetUserByID(ctx context.Context, id int) (*core.User, error) {
	var u core.User
	if err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u); err != nil {
		return nil, notFound("user", id, err)
	}
	return &u, nil
}
