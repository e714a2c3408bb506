// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// FS holds the numbered .sql files, applied in lexicographic order.
//
//go:embed *.sql
var FS embed.FS
