package main

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbpebble"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Count keys by prefix (pebble backend only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DBBackend != config.DBBackendPebble {
			return fmt.Errorf("keys needs the pebble backend, store is %q", config.DBBackend)
		}
		db, err := dbpebble.OpenDB(config.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		keyCounts, err := countKeysByPrefix(db)
		if err != nil {
			return err
		}
		printKeySummary(keyCounts)
		return nil
	},
}

// countKeysByPrefix counts all keys grouped by their first byte.
func countKeysByPrefix(db *pebble.DB) (map[byte]int, error) {
	keyCounts := make(map[byte]int)

	iter, err := db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if key := iter.Key(); len(key) > 0 {
			keyCounts[key[0]]++
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}
	return keyCounts, nil
}

var keyTypeNames = map[byte]string{
	dbpebble.KHeight:     "Height",
	dbpebble.KBlock:      "Block",
	dbpebble.KBlockTweak: "BlockTweak",
}

func printKeySummary(keyCounts map[byte]int) {
	fmt.Println("Database Key Type Summary:")
	fmt.Println("=========================")

	total := 0
	for _, prefix := range []byte{dbpebble.KHeight, dbpebble.KBlock, dbpebble.KBlockTweak} {
		fmt.Printf("%-25s: %d keys\n", keyTypeNames[prefix], keyCounts[prefix])
		total += keyCounts[prefix]
	}
	for prefix, count := range keyCounts {
		if _, known := keyTypeNames[prefix]; known {
			continue
		}
		fmt.Printf("%-25s: %d keys\n", fmt.Sprintf("Unknown(0x%02X)", prefix), count)
		total += count
	}
	fmt.Printf("%-25s: %d keys\n", "TOTAL", total)
}
