// Package migrations embeds the schema of the demo orders domain.
package migrations

import "embed"

// One directory per driver; files apply in name order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
