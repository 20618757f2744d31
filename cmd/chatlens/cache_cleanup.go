package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/flags"
)

func NewCacheCleanupCommand() *cobra.Command {
	dbFlags := flags.NewPostgresDatabaseFlags()
	cacheFlags := flags.NewCacheFlags()

	cmd := &cobra.Command{
		Use:   "cache-cleanup",
		Short: "Delete expired report cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cacheFlags.Validate(); err != nil {
				return errors.WithMessage(err, "error validating options")
			}
			dbc, err := dbFlags.GetDBClient()
			if err != nil {
				return errors.WithMessage(err, "couldn't get DB client")
			}
			defer dbc.Close()

			c, err := cacheFlags.GetCacheClient(dbc)
			if err != nil {
				return errors.WithMessage(err, "couldn't get cache client")
			}
			cleaner, ok := c.(cache.Cleaner)
			if !ok {
				log.Infof("the %s cache expires entries by itself, nothing to do", cacheFlags.Backend)
				return nil
			}

			n, err := cleaner.DeleteExpired(context.Background())
			if err != nil {
				return errors.WithMessage(err, "could not delete expired cache entries")
			}
			log.Infof("deleted %d expired cache entries", n)
			return nil
		},
	}

	dbFlags.BindFlags(cmd.Flags())
	cacheFlags.BindFlags(cmd.Flags())
	return cmd
}
