// Package service implements the business rules between the HTTP handlers
// and the stores: account lifecycle, report lifecycle with realtime fan-out,
// and dashboard aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
	"github.com/coastwatch-systems/coastwatch/pkg/tokens"
)

var (
	// ErrValidation wraps all bad-input failures so handlers can map them to 400.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// login responses do not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden means the authenticated user may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// AuthService handles registration, login and token resolution.
type AuthService struct {
	users  repository.UserStore
	tokens *tokens.TokenGenerator
	log    *logging.Logger
}

func NewAuthService(users repository.UserStore, tg *tokens.TokenGenerator, log *logging.Logger) *AuthService {
	if log == nil {
		log = logging.Default()
	}
	return &AuthService{users: users, tokens: tg, log: log}
}

// Register creates an account and returns a session token for it. Accounts
// default to the citizen role; analyst and admin roles are assigned by the
// seeder or by operators directly.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleCitizen
	}

	user := &models.User{
		ID:           id.String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered",
		logging.UserID(user.ID), logging.Email(user.Email), logging.Role(string(user.Role)))

	return s.issueToken(user)
}

// Login verifies the credentials and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.log.InfoContext(ctx, "user logged in", logging.UserID(user.ID), logging.Email(user.Email))
	return s.issueToken(user)
}

// GetUser loads a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ResolveToken validates a bearer token and loads the user it names. Used by
// the HTTP auth middleware and the realtime handshake.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, claims.UserID)
}

func (s *AuthService) issueToken(user *models.User) (*models.LoginResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.LoginResponse{Token: token, User: user.Profile()}, nil
}
