package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"golang.org/x/crypto/bcrypt"
)

// UserLookup finds a stored identity by name. It returns common.ErrorNotFound
// when no such user exists.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// CredentialVerifier checks a username and password against stored bcrypt
// hashes. It never writes.
type CredentialVerifier struct {
	users UserLookup
}

func NewCredentialVerifier(users UserLookup) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (Principal, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Principal{}, common.ErrIdentityNotFound
		}
		return Principal{}, fmt.Errorf("lookup %q: %w", username, err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return Principal{}, common.ErrBadCredentials
	}

	return NewPrincipal(user.UserName), nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func CheckPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
