package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/config"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbopen"
	"github.com/setavenger/blindbit-tweaks/internal/indexer"
	"github.com/setavenger/blindbit-tweaks/internal/logging"
	"github.com/setavenger/blindbit-tweaks/internal/metrics"
	"github.com/setavenger/blindbit-tweaks/internal/node"
	"github.com/spf13/cobra"
)

var (
	Version = "0.0.0"

	datadir    string
	configFile string

	startHeight  uint32
	endHeight    uint32
	blocks       uint32
	seekPrevOuts bool
	checkGaps    bool
)

const defaultBlocks = 10

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
	rootCmd.Flags().Uint32Var(
		&startHeight,
		"start-height",
		0,
		"Height to start indexing at. Without it the indexer resumes and follows the tip",
	)
	rootCmd.Flags().Uint32Var(
		&endHeight,
		"end-height",
		0,
		"Last height to index (inclusive)",
	)
	rootCmd.Flags().Uint32Var(
		&blocks,
		"blocks",
		defaultBlocks,
		"Number of blocks to index after start-height if end-height is not set",
	)
	rootCmd.Flags().BoolVarP(
		&seekPrevOuts,
		"seek-prev-outs",
		"s",
		false,
		"Fetch the spent outputs of a block in one call (needs getblock verbosity 3)",
	)
	rootCmd.Flags().BoolVar(
		&checkGaps,
		"check-gaps",
		false,
		"Index missing heights below the highest stored block before starting",
	)
}

var rootCmd = &cobra.Command{
	Use:           "tweak-indexer",
	Short:         "Silent payments tweak indexer",
	Long:          `tweak-indexer computes the BIP352 tweak of every eligible transaction per block and stores it.`,
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

// resolveRange turns the flags into indexer options. No (or a zero) start
// height means continuous mode, otherwise the end is end-height or start+blocks.
func resolveRange(cmd *cobra.Command, opts *indexer.Options) error {
	if startHeight == 0 {
		opts.Continuous = true
		return nil
	}

	opts.StartHeight = startHeight
	switch {
	case cmd.Flags().Changed("end-height"):
		opts.EndHeight = endHeight
	default:
		opts.EndHeight = startHeight + blocks
	}
	if opts.EndHeight < opts.StartHeight {
		return fmt.Errorf("end height %d is below start height %d", opts.EndHeight, opts.StartHeight)
	}
	return nil
}

func setup() (zerolog.Logger, io.Closer, error) {
	config.BaseDirectory = datadir
	config.SetDirectories()

	err := os.MkdirAll(config.BaseDirectory, 0750)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("error creating base directory: %w", err)
	}

	if configFile == "" {
		configFile = path.Join(config.BaseDirectory, config.ConfigFileName)
	}
	cfgErr := config.LoadConfigs(configFile)
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoConfigFile) {
		return zerolog.Nop(), nil, cfgErr
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   config.LogLevel,
		Dir:     config.LogsPath,
		Console: config.LogToConsole,
	})
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	logger.Info().Msgf("base directory %s", config.BaseDirectory)
	if cfgErr != nil {
		logger.Warn().Str("path", configFile).Msg("no config file detected, using defaults")
	}
	return logger, closer, nil
}

func run(cmd *cobra.Command, _ []string) error {
	logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Info().Msg("program shut down")

	opts := indexer.Options{
		PollInterval:                 config.PollInterval,
		FirstEligibleHeight:          config.FirstEligibleHeight,
		SeekPrevOuts:                 config.SeekPrevOuts || seekPrevOuts,
		MaxParallelTweakComputations: config.MaxParallelTweakComputations,
	}
	if err = resolveRange(cmd, &opts); err != nil {
		return err
	}

	if err = config.LoadRPCCredentials(); err != nil {
		logger.Err(err).Msg("rpc credentials")
		return err
	}
	config.LogSettings(logger)

	chainName := config.ChainToString(config.Chain)

	client, err := node.New(node.Config{
		Endpoint: config.RpcEndpoint,
		User:     config.RpcUser,
		Pass:     config.RpcPass,
	}, metrics.NewRPCClient(chainName))
	if err != nil {
		logger.Err(err).Msg("failed to create rpc client")
		return err
	}
	defer client.Shutdown()

	store, err := dbopen.Open(config.DBBackend, config.DBPath)
	if err != nil {
		logger.Err(err).Str("path", config.DBPath).Msg("failed to open db")
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.MetricsHost != "" {
		go func() {
			if err := metrics.ListenAndServe(ctx, config.MetricsHost, logger); err != nil {
				logger.Warn().Err(err).Msg("metrics endpoint unavailable")
			}
		}()
	}

	builder := indexer.NewBuilder(client, store, metrics.NewIndexer(chainName), logger, opts)

	if checkGaps {
		err = builder.FillGaps(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("interrupted")
			return nil
		}
		if err != nil {
			logger.Err(err).Msg("gap check failed")
			return err
		}
	}

	logger.Info().
		Bool("continuous", opts.Continuous).
		Uint32("start_height", opts.StartHeight).
		Uint32("end_height", opts.EndHeight).
		Msg("starting indexer")

	err = builder.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("interrupted")
		return nil
	}
	if err != nil {
		logger.Err(err).Msg("indexer stopped")
		return err
	}
	return nil
}
