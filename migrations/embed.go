// Package migrations compiles the SQL schema migrations into the binary so a
// deployment needs no loose files next to the executable.
package migrations

import (
	"embed"

	"github.com/joeldcross/homecontrol-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS)
}
