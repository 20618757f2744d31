package db

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatlens/chatlens/pkg/db/models"
)

// Seed holds the rows inserted by UpdateSchema when they do not exist yet.
// Existing rows are never overwritten.
type Seed struct {
	Settings []models.Setting
	Topics   []models.Topic
	// Admin is created only when the admin_users table is empty.
	Admin *models.AdminUser
}

var schema = []interface{}{
	&models.Message{},
	&models.ConversationSummary{},
	&models.Topic{},
	&models.Setting{},
	&models.AnalyticsCache{},
	&models.AdminUser{},
}

// UpdateSchema creates or migrates every table and inserts the seed rows.
func (d *DB) UpdateSchema(seed Seed) error {
	for _, model := range schema {
		if err := d.DB.AutoMigrate(model); err != nil {
			return err
		}
	}

	return d.DB.Transaction(func(tx *gorm.DB) error {
		if len(seed.Settings) > 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed.Settings)
			if res.Error != nil {
				return res.Error
			}
			log.Infof("seeded %d new settings", res.RowsAffected)
		}

		if len(seed.Topics) > 0 {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "topic_name"}}, DoNothing: true}).Create(&seed.Topics)
			if res.Error != nil {
				return res.Error
			}
			log.Infof("seeded %d new topics", res.RowsAffected)
		}

		if seed.Admin != nil {
			var existing models.AdminUser
			err := tx.Unscoped().First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(seed.Admin).Error; err != nil {
					return err
				}
				log.WithField("username", seed.Admin.Username).Info("created initial admin user")
			case err != nil:
				return err
			}
		}
		return nil
	})
}
