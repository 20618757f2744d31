package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

// ActiveUser looks up an active user by name.
func ActiveUser(ctx context.Context, dbc *db.DB, username string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := dbc.DB.WithContext(ctx).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateUser(ctx context.Context, dbc *db.DB, user *models.AdminUser) error {
	return dbc.DB.WithContext(ctx).Create(user).Error
}

func UpdatePasswordHash(ctx context.Context, dbc *db.DB, userID uint, hash string) error {
	return dbc.DB.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error
}

func TouchLastLogin(ctx context.Context, dbc *db.DB, userID uint, at time.Time) error {
	return dbc.DB.WithContext(ctx).Model(&models.AdminUser{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}
