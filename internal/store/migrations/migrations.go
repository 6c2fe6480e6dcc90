// Package migrations embeds the store schema, one numbered file per table.
// New tables get new files; existing files are never edited.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
