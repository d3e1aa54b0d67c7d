package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type tokenIssuer interface {
	GenerateToken(userID, name, role string) (string, error)
}

type Service struct {
	users Repository
	jwt   tokenIssuer
}

func NewService(users Repository, jwt tokenIssuer) *Service {
	return &Service{users: users, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Name, string(u.Role))
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: u, Token: token}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListByRole(ctx context.Context, role Role) ([]User, error) {
	return s.users.ListByRole(ctx, role)
}

// HashPassword is shared with the seed tool.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
