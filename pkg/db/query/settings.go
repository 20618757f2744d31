package query

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

func ListSettings(ctx context.Context, dbc *db.DB) ([]models.Setting, error) {
	var settings []models.Setting
	err := dbc.DB.WithContext(ctx).Order("setting_key").Find(&settings).Error
	return settings, err
}

// UpsertSettings writes every row in one transaction.
func UpsertSettings(ctx context.Context, dbc *db.DB, settings []models.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	return dbc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "setting_type", "updated_at"}),
		}).Create(&settings).Error
	})
}
