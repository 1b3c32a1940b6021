// Package migrations embeds SQL migration files into the binary, so the
// schema can be applied without the files being present on disk.
package migrations

import (
	"embed"

	"github.com/netsyncd/netsync-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files are at the root of the embedded FS
}
