package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/module/auth"

	"github.com/google/uuid"
)

// CreateToken issues a new auth token for the user. The raw value is only
// returned here; the database keeps its hash.
func (s *Store) CreateToken(ctx context.Context, userID int64, description string) (string, *auth.AuthToken, error) {
	raw := "nrp_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	token := &auth.AuthToken{UserID: userID, Description: description, Created: time.Now().UnixMilli()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (user_id, token_hash, description, created) VALUES (?, ?, ?, ?)`,
		userID, auth.HashToken(raw), description, token.Created)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("insert token: %w", err)
	}
	if token.ID, err = res.LastInsertId(); err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

// GetUserByToken looks a raw token value up by its hash.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*auth.User, *auth.AuthToken, error) {
	var t auth.AuthToken
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, description, created FROM auth_tokens WHERE token_hash = ?`, auth.HashToken(token)).
		Scan(&t.ID, &t.UserID, &t.Description, &t.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	user, err := s.GetUserByID(ctx, t.UserID)
	if err != nil || user == nil {
		return nil, nil, err
	}
	return user, &t, nil
}

func (s *Store) ListTokens(ctx context.Context, userID int64) ([]auth.AuthToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, description, created FROM auth_tokens WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []auth.AuthToken
	for rows.Next() {
		var t auth.AuthToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Created); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Store) DeleteToken(ctx context.Context, userID, tokenID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	return err
}
