// Package migrations embeds the SQL schema migrations for the dialog
// archive database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
