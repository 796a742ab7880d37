package sqliteutil

import (
	"database/sql"
	"fmt"
	devenv "isugrades-backend/dev/env"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database.
type Config struct {
	// File is a path to a sqlite database, `<dev_state>` prefixes are
	// resolved and `:memory:` is allowed.
	File string `json:"file" yaml:"file"`
	// Url is a libsql url (libsql://, https://, ws://), it takes precedence
	// over File.
	Url string `json:"url" yaml:"url"`
	// AuthToken is appended to Url as the authToken query parameter.
	AuthToken string `json:"auth_token" yaml:"auth_token"`
}

// OpenDB opens the configured database and applies the schema to it. Schema
// statements are expected to be idempotent (`IF NOT EXISTS`).
func (config Config) OpenDB(schema string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch {
	case config.Url != "":
		db, err = openLibsql(config.Url, config.AuthToken)
	case config.File != "":
		db, err = openSqlite(config.File)
	default:
		return nil, fmt.Errorf("a database file or url was not specified")
	}
	if err != nil {
		return nil, err
	}

	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

func openLibsql(url, authToken string) (*sql.DB, error) {
	if authToken != "" {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url = fmt.Sprintf("%s%sauthToken=%s", url, separator, authToken)
	}
	return sql.Open("libsql", url)
}

func openSqlite(file string) (*sql.DB, error) {
	dbpath, err := devenv.ResolvePath(file)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer, and every connection to `:memory:`
	// is a separate database.
	db.SetMaxOpenConns(1)
	if dbpath != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
