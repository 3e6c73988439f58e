// Package migrations embeds the league SQLite schema history.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
