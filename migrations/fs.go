// Package migrations embeds SQL migrations applied by internal/migrate.
package migrations

import "embed"

// FS contains all goose SQL migration files.
//
//go:embed *.sql
var FS embed.FS
