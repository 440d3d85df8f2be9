package database

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"strings"
)

// GetDBDriver returns the configured database driver name.
func GetDBDriver() string {
	driver := os.Getenv("TEST_DB_DRIVER")
	if driver == "" {
		driver = os.Getenv("DB_DRIVER")
	}
	if driver == "" {
		driver = "postgres"
	}
	return strings.ToLower(driver)
}

// IsMySQL returns true if using MySQL/MariaDB.
func IsMySQL() bool {
	driver := GetDBDriver()
	return driver == "mysql" || driver == "mariadb"
}

// IsPostgreSQL returns true if using PostgreSQL.
func IsPostgreSQL() bool {
	return GetDBDriver() == "postgres"
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts PostgreSQL placeholders ($1, $2) to MySQL
// placeholders (?). Queries are written in PostgreSQL form with strictly
// sequential numbering so positional substitution is safe.
func ConvertPlaceholders(query string) string {
	if !IsMySQL() {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

// UpsertIgnore rewrites a plain INSERT into the dialect's
// insert-or-skip form for a unique-constraint upsert.
func UpsertIgnore(insert string, conflictColumn string) string {
	if IsMySQL() {
		return strings.Replace(insert, "INSERT INTO", "INSERT IGNORE INTO", 1)
	}
	return insert + " ON CONFLICT (" + conflictColumn + ") DO NOTHING"
}

// InsertWithID executes an INSERT written with a trailing "RETURNING id"
// and returns the generated key on either dialect.
func InsertWithID(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	if IsMySQL() {
		query = strings.TrimSuffix(strings.TrimSpace(query), "RETURNING id")
		res, err := db.ExecContext(ctx, ConvertPlaceholders(query), args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	var id int64
	err := db.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}
