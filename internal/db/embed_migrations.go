package db

import "embed"

// MigrationFS holds the Postgres schema for the audit trail. Applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
