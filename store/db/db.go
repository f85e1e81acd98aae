package db

import (
	"github.com/pkg/errors"

	"github.com/inkwell-press/inkwell/internal/profile"
	"github.com/inkwell-press/inkwell/store"
	"github.com/inkwell-press/inkwell/store/db/postgres"
	"github.com/inkwell-press/inkwell/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the reference implementation for production; SQLite serves
// development and single-instance deployments. Both enforce the unique
// constraint on tag.slug that backs the engine's check-then-write pattern.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
