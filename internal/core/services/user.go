package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fabtrack/internal/core/contracts"
	"fabtrack/internal/core/domain"
	"fabtrack/pkg/logging"
)

type UserService struct {
	log   *slog.Logger
	users contracts.UserRepository
}

func NewUserService(log *slog.Logger, users contracts.UserRepository) *UserService {
	return &UserService{log: log, users: users}
}

// Login checks the credentials against the stored bcrypt hash and returns
// the user on success. Unknown email and wrong password are reported
// identically so the endpoint does not leak which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.InfoContext(ctx, "login rejected", logging.User(user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Get looks a user up by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
