package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
	"github.com/chatlens/chatlens/pkg/flags"
	"github.com/chatlens/chatlens/pkg/settings"
)

const adminPasswordEnv = "CHATLENS_ADMIN_PASSWORD"

func NewMigrateCommand() *cobra.Command {
	dbFlags := flags.NewPostgresDatabaseFlags()
	analysisFlags := flags.NewAnalysisFlags()
	var adminUser string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates or initializes the PostgreSQL database to the latest schema.",
		Long: `Creates or updates every table and seeds the default settings, the lexicon
topics and, when no user exists yet and ` + adminPasswordEnv + ` is set, an
admin user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbc, err := dbFlags.GetDBClient()
			if err != nil {
				return errors.WithMessage(err, "could not connect to db")
			}
			defer dbc.Close()

			// --topics-from-db makes no sense before the table exists
			analysisFlags.TopicsFromDB = false
			lexicon, err := analysisFlags.GetLexicon(context.Background(), nil)
			if err != nil {
				return err
			}

			seed := db.Seed{
				Settings: settings.DefaultModels(),
				Topics:   topicModels(lexicon.Topics),
			}
			if password := os.Getenv(adminPasswordEnv); password != "" {
				admin, err := adminModel(adminUser, password)
				if err != nil {
					return errors.WithMessage(err, "invalid initial admin")
				}
				seed.Admin = admin
			} else {
				log.Infof("%s is not set, no initial admin user will be created", adminPasswordEnv)
			}

			if err := dbc.UpdateSchema(seed); err != nil {
				return errors.WithMessage(err, "could not migrate db")
			}
			log.Info("database is up to date")
			return nil
		},
	}

	dbFlags.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&analysisFlags.LexiconFile, "lexicon-file", "", "YAML file whose topics are seeded instead of the built-in ones")
	cmd.Flags().StringVar(&adminUser, "admin-username", "admin", "Username of the initial admin user")
	return cmd
}

func topicModels(topics []analysis.Topic) []models.Topic {
	out := make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		out = append(out, models.Topic{
			Name:     t.Name,
			Keywords: append([]string(nil), t.Keywords...),
			Color:    "#007bff",
			IsActive: true,
		})
	}
	return out
}

func adminModel(username, password string) (*models.AdminUser, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("--admin-username is required")
	}
	if strength := auth.PasswordStrength(password); !strength.IsStrong {
		return nil, errors.Errorf("%s is too weak: %s", adminPasswordEnv, strings.Join(strength.Feedback, ", "))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &models.AdminUser{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         string(auth.RoleAdmin),
		FullName:     "Administrator",
		IsActive:     true,
	}, nil
}
