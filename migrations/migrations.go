// Package migrations embeds the SQL schema so the server can apply it on start
package migrations

import "embed"

// Files holds the numbered *.sql migrations, applied in name order
//
//go:embed *.sql
var Files embed.FS
