package dbsqlite

import (
	"github.com/setavenger/blindbit-tweaks/internal/database/dbtest"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

func blockAt(height uint32) types.BlockRecord {
	return types.BlockRecord{Height: height, Hash: dbtest.HashA}
}
