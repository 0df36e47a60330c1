package main

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/logging"
	"github.com/spf13/cobra"
)

var (
	Version = "0.0.0"

	// Global flags
	datadir    string
	configFile string
	dbBackend  string
	dbPath     string

	// Export command flags
	exportDir string

	logger zerolog.Logger
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(
		&datadir,
		"datadir",
		config.DefaultBaseDirectory,
		"Set the base directory. Default directory is ~/.blindbit-tweaks",
	)
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Path to config file (default: datadir/tweaks.toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&dbBackend,
		"backend",
		"",
		"Storage backend: sqlite or pebble (default: db_backend from the config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db",
		"",
		"Path to the database (default: db_path from the config)",
	)

	exportCmd.Flags().StringVar(
		&exportDir,
		"out",
		"",
		"Directory for the csv files (default: datadir/data-export)",
	)
}

var rootCmd = &cobra.Command{
	Use:   "tweak-db",
	Short: "Inspect the tweak store",
	Long: `tweak-db reads the store written by tweak-indexer. It prints
the indexing progress, the tweaks of single blocks and exports everything to csv.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.BaseDirectory = datadir
		config.SetDirectories()

		if configFile == "" {
			configFile = path.Join(config.BaseDirectory, config.ConfigFileName)
		}
		err := config.LoadConfigs(configFile)
		if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
			return err
		}

		if dbBackend != "" {
			config.DBBackend = dbBackend
		}
		if dbPath != "" {
			config.DBPath = config.ResolvePath(dbPath)
		}
		if config.DBPath == "" {
			config.DBPath = config.DefaultDBPath(config.DBBackend)
		}

		// no Dir: stderr only, stdout is for the results
		logger, _, err = logging.New(logging.Options{Level: config.LogLevel})
		if err != nil {
			return err
		}
		logger.Debug().Str("backend", config.DBBackend).Str("path", config.DBPath).Msg("using store")
		return nil
	},
}

func main() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tweaksCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(keysCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
