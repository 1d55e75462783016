package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordRequired = errors.New("password cannot be empty")

type Service interface {
	// Register hashes the raw password carried in user.PasswordHash and
	// persists the account.
	Register(ctx context.Context, user *User, rawPassword string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) error
	ListUsers(ctx context.Context) ([]User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, user *User, rawPassword string) (*User, error) {
	if rawPassword == "" {
		return nil, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if _, err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrUserExists) {
			return nil, err
		}
		log.Error().Err(err).Str("username", user.Username).Msg("service: failed to create user")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("service: user registered")
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("user_id", id).Msg("service: failed to fetch user")
		return nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to fetch profile")
		return nil, fmt.Errorf("service: failed to fetch profile: %w", err)
	}
	return p, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) error {
	err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailExists) {
			return err
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to update profile")
		return fmt.Errorf("service: failed to update profile: %w", err)
	}
	return nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}
	return users, nil
}
