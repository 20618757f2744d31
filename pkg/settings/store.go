package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/query"
)

// Source provides the effective settings.
type Source interface {
	Load(ctx context.Context) (Settings, error)
}

// DBSource reads settings from the settings table.
type DBSource struct {
	dbc *db.DB
}

func NewDBSource(dbc *db.DB) *DBSource {
	return &DBSource{dbc: dbc}
}

// Load returns the stored settings overlaid on the defaults. Rows that do not
// parse are logged and replaced by their default.
func (s *DBSource) Load(ctx context.Context) (Settings, error) {
	rows, err := query.ListSettings(ctx, s.dbc)
	if err != nil {
		return Defaults(), err
	}
	settings, errs := FromModels(rows)
	for _, err := range errs {
		log.WithError(err).Warning("ignoring invalid stored setting")
	}
	return settings, nil
}

// Update validates and writes the given values. Nothing is written if any
// value is invalid.
func (s *DBSource) Update(ctx context.Context, values map[string]interface{}) (Settings, error) {
	update := Settings{}
	for key, raw := range values {
		v, err := FromInterface(KindOf(key), raw)
		if err != nil {
			return nil, &ValidationError{Key: key, Err: err}
		}
		if err := Validate(key, v); err != nil {
			return nil, &ValidationError{Key: key, Err: err}
		}
		update[key] = v
	}

	rows := update.ToModels()
	now := time.Now()
	for i := range rows {
		rows[i].UpdatedAt = now
	}
	if err := query.UpsertSettings(ctx, s.dbc, rows); err != nil {
		return nil, err
	}
	return s.Load(ctx)
}

// Static is a fixed Source, used when no database is configured and in tests.
type Static Settings

func (s Static) Load(context.Context) (Settings, error) {
	out := Defaults()
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid setting " + e.Key + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
