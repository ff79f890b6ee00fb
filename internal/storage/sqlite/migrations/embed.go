package migrations

import "embed"

// FS contains the embedded SQLite migrations for the interview repository.
//
//go:embed *.sql
var FS embed.FS
