// Package migrations embeds the goose SQL migrations, one directory per
// supported dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Directories inside Migrations, per dialect.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
