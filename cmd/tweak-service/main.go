package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbopen"
	"github.com/setavenger/blindbit-tweaks/internal/logging"
	"github.com/setavenger/blindbit-tweaks/internal/server"
	"github.com/spf13/cobra"
)

var (
	Version = "0.0.0"

	datadir    string
	configFile string
	httpHost   string
)

func init() {
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
	rootCmd.Flags().StringVar(
		&httpHost,
		"http-host",
		"",
		"Address to serve the API on (default: http_host from the config)",
	)
}

var rootCmd = &cobra.Command{
	Use:           "tweak-service",
	Short:         "Read API over the indexed tweaks",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	config.BaseDirectory = datadir
	config.SetDirectories()

	if configFile == "" {
		configFile = path.Join(config.BaseDirectory, config.ConfigFileName)
	}
	cfgErr := config.LoadConfigs(configFile)
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoConfigFile) {
		return cfgErr
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   config.LogLevel,
		Dir:     config.LogsPath,
		File:    "tweak-service.log",
		Console: config.LogToConsole,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfgErr != nil {
		logger.Warn().Str("path", configFile).Msg("no config file detected, using defaults")
	}
	if httpHost != "" {
		config.HTTPHost = httpHost
	}

	store, err := dbopen.Open(config.DBBackend, config.DBPath)
	if err != nil {
		logger.Err(err).Str("path", config.DBPath).Msg("failed to open db")
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := server.NewApiHandler(store, config.ChainToString(config.Chain), logger)
	return server.RunServer(ctx, config.HTTPHost, api, logger)
}
