// Package migrations compiles the SQL migration files into the
// Conductor binary so deployments never ship loose .sql files.
package migrations

import (
	"embed"

	"github.com/hearthward/conductor/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
