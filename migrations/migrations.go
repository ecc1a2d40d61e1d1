// Package migrations embeds the PostgreSQL schema migrations for golang-migrate.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming order.
//
//go:embed *.sql
var FS embed.FS

// RollHistoryUp is the file name of the roll_history creation migration.
const RollHistoryUp = "000001_roll_history.up.sql"
