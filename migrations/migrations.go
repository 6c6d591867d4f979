// Package migrations embeds the SQL schema and the demo seed files applied by
// internal/migrate.
package migrations

import "embed"

// Files holds sql/*.up.sql, sql/*.down.sql and seeds/*.sql.
//
//go:embed sql/*.sql seeds/*.sql
var Files embed.FS

const (
	SQLDir   = "sql"
	SeedsDir = "seeds"
)
