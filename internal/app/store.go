package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirehook/internal/store"
	"github.com/vovakirdan/wirehook/internal/store/postgres"
	"github.com/vovakirdan/wirehook/internal/store/sqlite"
)

// ErrUnsupportedDatabase is returned for database URLs with an unknown scheme.
var ErrUnsupportedDatabase = errors.New("unsupported database scheme")

// Store is a storage backend that can also apply its schema.
type Store interface {
	store.Store
	Migrate(ctx context.Context) error
}

// OpenStore opens the backend named by the scheme of databaseURL.
// A bare path without scheme is treated as a SQLite file.
func OpenStore(databaseURL string) (Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}

	scheme := ""
	if before, _, found := strings.Cut(databaseURL, "://"); found {
		scheme = strings.ToLower(before)
	}

	switch scheme {
	case "", "sqlite":
		st, err := sqlite.New(sqlite.ParseURL(databaseURL))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres", "postgresql":
		st, err := postgres.New(databaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, scheme)
	}
}

// redactURL hides the password of a database URL for logging.
func redactURL(databaseURL string) string {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return databaseURL
	}
	userinfo, host, found := strings.Cut(rest, "@")
	if !found {
		return databaseURL
	}
	if user, _, hasPassword := strings.Cut(userinfo, ":"); hasPassword {
		return scheme + "://" + user + ":xxxxx@" + host
	}
	return databaseURL
}
