// Package migrations embeds the goose schema migrations. The SQL is written
// to run unchanged on PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
