package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/permissions"
	cerrors "github.com/nitro-repo/nitro-repo/util/common/errors"

	"golang.org/x/crypto/bcrypt"
)

// NewUser is the input of AddUser.
type NewUser struct {
	Name        string
	Username    string
	Email       string
	Password    string
	Permissions permissions.UserPermissions
}

func (u NewUser) validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return cerrors.NewValidationError("username", "username cannot be empty")
	}
	if !strings.Contains(u.Email, "@") {
		return cerrors.NewValidationError("email", "invalid email address")
	}
	return nil
}

const userColumns = `id, name, username, email, permissions, created`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	var (
		user  auth.User
		perms string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Username, &user.Email, &perms, &user.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(perms), &user.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions of user %d: %w", user.ID, err)
	}
	return &user, nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Store) AddUser(ctx context.Context, u NewUser) (*auth.User, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	hash, err := hashPassword(u.Password)
	if err != nil {
		return nil, err
	}
	perms, err := json.Marshal(u.Permissions)
	if err != nil {
		return nil, err
	}
	created := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, username, email, password_hash, permissions, created) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Username, u.Email, hash, string(perms), created)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:          id,
		Name:        u.Name,
		Username:    u.Username,
		Email:       u.Email,
		Permissions: u.Permissions,
		Created:     created,
	}, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByUsername matches the username or the email, case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, username, username))
}

func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// VerifyLogin returns nil without an error when the user does not exist, has
// no password or the password does not match.
func (s *Store) VerifyLogin(ctx context.Context, username, password string) (*auth.User, error) {
	var (
		id   int64
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = ? OR email = ? LIMIT 1`, username, username).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if hash == "" {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) SetPassword(ctx context.Context, username, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.updateUser(ctx, username, `password_hash = ?`, hash)
}

func (s *Store) SetPermissions(ctx context.Context, username string, perms permissions.UserPermissions) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return s.updateUser(ctx, username, `permissions = ?`, string(data))
}

func (s *Store) updateUser(ctx context.Context, username, set string, value any) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+set+` WHERE username = ?`, value, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return err
}

var _ auth.UserStore = (*Store)(nil)
