package app

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/lines-ledger/db"
	"github.com/riskibarqy/lines-ledger/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const (
	applicationName       = "linesync"
	maxTracedQueryLength  = 512
	embeddedMigrationsTag = "embedded"
)

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	var (
		conn *sqlx.DB
		err  error
	)
	if cfg.DBTraceEnabled {
		conn, err = otelsqlx.Open("postgres", dsn,
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
	} else {
		conn, err = sqlx.Open("postgres", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// One writer; a couple of spare connections cover the archive insert.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	return conn, nil
}

// NewMigrator reads migrations from dir when it is set and from the files
// embedded in the binary otherwise. The string names the source for logs.
func NewMigrator(cfg config.Config, dir string) (*migrate.Migrate, string, error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		return nil, "", fmt.Errorf("DB_URL is required")
	}
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	if dir = strings.TrimSpace(dir); dir != "" {
		sourceURL := "file://" + dir
		m, err := migrate.New(sourceURL, dsn)
		if err != nil {
			return nil, "", fmt.Errorf("create migrator from %s: %w", sourceURL, err)
		}
		return m, sourceURL, nil
	}

	src, err := iofs.New(db.Migrations, db.MigrationsDir)
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("create migrator: %w", err)
	}
	return m, embeddedMigrationsTag, nil
}

// normalizeDBURL fills in connection parameters the sync engine relies on
// unless the URL sets them already. Key/value DSNs pass through.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	changed := false
	if disablePreparedBinaryResult && query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		changed = true
	}
	if query.Get("application_name") == "" {
		query.Set("application_name", applicationName)
		changed = true
	}
	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")); name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		value, ok := strings.CutPrefix(token, "dbname=")
		if !ok {
			continue
		}
		if name := strings.Trim(strings.TrimSpace(value), `"'`); name != "" {
			return name
		}
	}

	return ""
}

// formatDBQueryForTrace collapses whitespace and caps the statement length.
func formatDBQueryForTrace(query string) string {
	normalized := queryWhitespaceRegex.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
