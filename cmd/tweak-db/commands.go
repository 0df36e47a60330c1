package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbopen"
	"github.com/setavenger/blindbit-tweaks/internal/dataexport"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show indexing progress and tweak totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store database.DB) error {
			height, ok, err := store.HighestBlockHeight(ctx)
			if err != nil {
				return fmt.Errorf("failed to get highest height: %w", err)
			}
			metrics, err := store.TweakMetrics(ctx)
			if err != nil {
				return fmt.Errorf("failed to get tweak metrics: %w", err)
			}

			var total uint64
			for _, m := range metrics {
				total += uint64(m.TweakCount)
			}

			fmt.Println("Tweak Store Info:")
			fmt.Println("=================")
			fmt.Printf("%-20s: %s\n", "Chain", config.ChainToString(config.Chain))
			fmt.Printf("%-20s: %s\n", "Backend", config.DBBackend)
			fmt.Printf("%-20s: %s\n", "Path", config.DBPath)
			if ok {
				fmt.Printf("%-20s: %d\n", "Highest height", height)
			} else {
				fmt.Printf("%-20s: none\n", "Highest height")
			}
			fmt.Printf("%-20s: %d\n", "Blocks with tweaks", len(metrics))
			fmt.Printf("%-20s: %d\n", "Tweaks", total)
			return nil
		})
	},
}

var tweaksCmd = &cobra.Command{
	Use:   "tweaks <blockhash>",
	Short: "Print the tweaks of one block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blockHash := strings.ToLower(args[0])
		return withStore(cmd.Context(), func(ctx context.Context, store database.DB) error {
			blocks, err := store.BlockByHash(ctx, blockHash)
			if err != nil {
				return err
			}
			if len(blocks) == 0 {
				return fmt.Errorf("block %s is not indexed", blockHash)
			}
			tweaks, err := store.TweaksByBlockHash(ctx, blockHash)
			if err != nil {
				return err
			}

			fmt.Printf("Block %s at height %d: %d tweaks\n", blockHash, blocks[0].Height, len(tweaks))
			for _, t := range tweaks {
				fmt.Printf("%s %s\n", t.Txid, t.Tweak)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tweaks and block stats to csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := exportDir
		if dir == "" {
			dir = filepath.Join(config.BaseDirectory, "data-export")
		}
		return withStore(cmd.Context(), func(ctx context.Context, store database.DB) error {
			paths, err := dataexport.ExportAll(ctx, store, dir, logger)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		})
	},
}

func withStore(ctx context.Context, fn func(ctx context.Context, store database.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := dbopen.Open(config.DBBackend, config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
		}
	}()
	return fn(ctx, store)
}
