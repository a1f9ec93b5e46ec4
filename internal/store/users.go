package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vesaa/hostdash/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrBadCredentials is returned by Authenticate for an unknown user or wrong password.
var ErrBadCredentials = errors.New("invalid credentials")

// CreateUser stores a new account with a bcrypt-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string, superuser bool) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsSuperuser:  superuser,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return u, nil
}

// EnsureUser creates the account when it does not exist yet. An existing
// account is returned untouched, password included.
func (s *Store) EnsureUser(ctx context.Context, username, password string, superuser bool) (*models.User, bool, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	created, err := s.CreateUser(ctx, username, password, superuser)
	return created, err == nil, err
}

// Authenticate checks a username/password pair.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &u, nil
}
