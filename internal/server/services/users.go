// Package services contains server-side business logic: account handling
// and the task mutation coordinator.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/auth"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
)

type UserService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	verifier    *auth.CredentialVerifier
	issuer      *auth.TokenIssuer
	log         logging.Logger
}

func NewUserService(db dbx.DBTX, m repomanager.RepositoryManager, issuer *auth.TokenIssuer, log logging.Logger) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		log:         log.With("module", "users"),
	}
	s.verifier = auth.NewCredentialVerifier(s)
	return s
}

// Register stores a new identity with a bcrypt hash of password.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	var problems []string
	if username == "" {
		problems = append(problems, "Username is required")
	}
	if password == "" {
		problems = append(problems, "Password is required")
	}
	if len(problems) > 0 {
		return nil, &common.ValidationError{Problems: problems}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "username", user.UserName, "id", user.ID)
	return user, nil
}

// GetByUsername lets the credential verifier read identities through the
// repository manager.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}

// Login checks the credentials and mints a bearer token. Failures are
// common.ErrIdentityNotFound or common.ErrBadCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	principal, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := s.issuer.Issue(principal)
	if err != nil {
		return "", fmt.Errorf("error issuing token: %w", err)
	}
	return token, nil
}

// Delete removes the identity. Tokens already issued stay valid until they
// expire.
func (s *UserService) Delete(ctx context.Context, username string) error {
	if err := s.repomanager.Users(s.db).DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrIdentityNotFound
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.log.Info(ctx, "user deleted", "username", username)
	return nil
}
