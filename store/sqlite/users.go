package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/fxforecast/store"
)

const userColumns = `id, email, full_name, role, password_hash, created_at`

func scanUser(row *sql.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, err
	}
	return u, nil
}

func (s *SQLite) CreateUser(ctx context.Context, u store.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.FullName, u.Role, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM user_profiles WHERE email = ?`, strings.ToLower(email)))
	if err != nil {
		return store.User{}, fmt.Errorf("user %s: %w", email, err)
	}
	return u, nil
}

func (s *SQLite) UserByID(ctx context.Context, userID string) (store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM user_profiles WHERE id = ?`, userID))
	if err != nil {
		return store.User{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return u, nil
}

// UpdateUser updates the mutable profile fields (full name, role).
func (s *SQLite) UpdateUser(ctx context.Context, u store.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles SET full_name = ?, role = ? WHERE id = ?`,
		u.FullName, u.Role, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	return nil
}
