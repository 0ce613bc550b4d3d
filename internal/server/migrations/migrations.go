// Package migrations embeds the goose SQL migrations for the PostgreSQL
// key-value backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
