package auth

import (
	"context"
	"time"

	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/db/query"
)

// DBUserStore is the UserStore backed by the admin_users table.
type DBUserStore struct {
	dbc *db.DB
}

func NewDBUserStore(dbc *db.DB) *DBUserStore {
	return &DBUserStore{dbc: dbc}
}

func (s *DBUserStore) ActiveUser(ctx context.Context, username string) (*models.AdminUser, error) {
	return query.ActiveUser(ctx, s.dbc, username)
}

func (s *DBUserStore) CreateUser(ctx context.Context, user *models.AdminUser) error {
	return query.CreateUser(ctx, s.dbc, user)
}

func (s *DBUserStore) UpdatePasswordHash(ctx context.Context, userID uint, hash string) error {
	return query.UpdatePasswordHash(ctx, s.dbc, userID, hash)
}

func (s *DBUserStore) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return query.TouchLastLogin(ctx, s.dbc, userID, at)
}
