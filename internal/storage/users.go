package storage

import (
	"context"
	"errors"
	"fmt"

	"noshow-predictor/internal/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

// UserStore is the credential table. Rows are only ever inserted.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Lookup(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

// Insert stores a new user. It returns false without an error when the
// username is already taken.
func (s *UserStore) Insert(ctx context.Context, username, passwordHash string) (bool, error) {
	user := models.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	err := s.db.WithContext(ctx).Create(&user).Error
	if IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return true, nil
}
