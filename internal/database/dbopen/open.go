// dbopen picks the storage backend named in the config
package dbopen

import (
	"fmt"

	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbpebble"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbsqlite"
)

var (
	_ database.DB = (*dbsqlite.Store)(nil)
	_ database.DB = (*dbpebble.Store)(nil)
)

// Open returns the store for backend. For sqlite path is the database file,
// for pebble it is the directory.
func Open(backend, path string) (database.DB, error) {
	switch backend {
	case config.DBBackendSQLite, "":
		return dbsqlite.Open(path)
	case config.DBBackendPebble:
		return dbpebble.Open(path)
	default:
		return nil, fmt.Errorf("unknown db backend %q", backend)
	}
}
