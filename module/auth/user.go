// Package auth resolves who is calling: sessions behind the "session" cookie,
// bearer auth tokens and basic credentials.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/module/repository/api"
)

type User struct {
	ID          int64                       `json:"id"`
	Name        string                      `json:"name"`
	Username    string                      `json:"username"`
	Email       string                      `json:"email"`
	Permissions permissions.UserPermissions `json:"permissions"`
	Created     int64                       `json:"created"`
}

// Caller is the identity handed to repository handlers.
func (u *User) Caller() api.Caller {
	if u == nil {
		return api.Caller{}
	}
	return api.Caller{UserID: u.ID, Username: u.Username, Email: u.Email}
}

// AuthToken is a long lived bearer credential. Only the hash of the token is
// stored.
type AuthToken struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Description string `json:"description,omitempty"`
	Created     int64  `json:"created"`
}

// HashToken is how raw token values are looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// UserStore is the user lookup the resolver needs. Lookups that find nothing
// return nil without an error.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByToken(ctx context.Context, token string) (*User, *AuthToken, error)
	// VerifyLogin returns the user when the password matches.
	VerifyLogin(ctx context.Context, username, password string) (*User, error)
}

// CredentialVerifier adapts a UserStore for protocol level logins.
type CredentialVerifier struct {
	Users UserStore
}

func (v CredentialVerifier) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	user, err := v.Users.VerifyLogin(ctx, username, password)
	if err != nil {
		return false, err
	}
	return user != nil && !user.Permissions.Disabled, nil
}
