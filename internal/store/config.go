package store

import (
	"database/sql"
	"fmt"
	"net/url"

	"partwatch/pkg/migrations"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Config picks the backend of the store, a remote libsql database when Url is set and
// a local sqlite file otherwise.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (c Config) Remote() bool {
	return c.Url != ""
}

// OpenDB opens the configured database without migrating it.
func (c Config) OpenDB() (*sql.DB, error) {
	if !c.Remote() {
		if c.File == "" {
			return nil, fmt.Errorf("a store path was not specified")
		}
		return migrations.OpenDB(c.File)
	}

	if c.AuthToken == "" {
		return nil, ErrMissingAuthToken
	}
	dsn, err := url.Parse(c.Url)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	query := dsn.Query()
	query.Set("authToken", c.AuthToken)
	dsn.RawQuery = query.Encode()

	db, err := sql.Open("libsql", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}
