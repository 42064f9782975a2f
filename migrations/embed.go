// Package migrations embeds the SQL schema applied by db.Migrate.
package migrations

import "embed"

// FS holds every migration script at its root.
//
//go:embed *.sql
var FS embed.FS
