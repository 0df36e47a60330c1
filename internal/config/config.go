package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-lib/utils"
	"github.com/spf13/viper"
)

var ErrNoConfigFile = errors.New("no config file detected")

// LoadConfigs reads the toml file at pathToConfig and the environment into
// the package level settings. A missing file is not fatal, the defaults and
// the environment still apply and ErrNoConfigFile is returned alongside.
func LoadConfigs(pathToConfig string) error {
	v := viper.New()
	v.SetConfigFile(pathToConfig)

	var missing bool
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config %s: %w", pathToConfig, err)
		}
		missing = true
	}

	/* set defaults */
	v.SetDefault("chain", "main")
	v.SetDefault("rpc_endpoint", RpcEndpoint)
	v.SetDefault("http_host", HTTPHost)
	v.SetDefault("metrics_host", MetricsHost)
	v.SetDefault("db_backend", DBBackend)
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_path", LogsPath)
	v.SetDefault("log_to_console", true)
	v.SetDefault("max_parallel_tweak_computations", MaxParallelTweakComputations)
	v.SetDefault("poll_interval", PollInterval)
	v.SetDefault("first_eligible_height", 0)
	v.SetDefault("seek_prev_outs", false)

	// Bind viper keys to environment variables
	v.AutomaticEnv()
	_ = v.BindEnv("chain", "CHAIN")
	_ = v.BindEnv("rpc_endpoint", "RPC_ENDPOINT")
	_ = v.BindEnv("rpc_user", "RPC_USER")
	_ = v.BindEnv("rpc_pass", "RPC_PASS")
	_ = v.BindEnv("cookie_path", "COOKIE_PATH")
	_ = v.BindEnv("db_backend", "DB_BACKEND")
	_ = v.BindEnv("db_path", "DB_PATH")
	_ = v.BindEnv("http_host", "HTTP_HOST")
	_ = v.BindEnv("metrics_host", "METRICS_HOST")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_path", "LOG_PATH")
	_ = v.BindEnv("max_parallel_tweak_computations", "MAX_PARALLEL_TWEAK_COMPUTATIONS")
	_ = v.BindEnv("poll_interval", "POLL_INTERVAL")
	_ = v.BindEnv("first_eligible_height", "FIRST_ELIGIBLE_HEIGHT")
	_ = v.BindEnv("seek_prev_outs", "SEEK_PREV_OUTS")

	/* read and set config variables */
	// General
	HTTPHost = v.GetString("http_host")
	MetricsHost = v.GetString("metrics_host")
	LogLevel = v.GetString("log_level")
	LogsPath = v.GetString("log_path")
	LogToConsole = v.GetBool("log_to_console")

	// Storage
	DBBackend = v.GetString("db_backend")
	DBPath = v.GetString("db_path")

	// Indexing
	MaxParallelTweakComputations = v.GetInt("max_parallel_tweak_computations")
	PollInterval = v.GetDuration("poll_interval")
	FirstEligibleHeight = v.GetUint32("first_eligible_height")
	SeekPrevOuts = v.GetBool("seek_prev_outs")

	// RPC
	RpcEndpoint = v.GetString("rpc_endpoint")
	CookiePath = v.GetString("cookie_path")
	RpcUser = v.GetString("rpc_user")
	RpcPass = v.GetString("rpc_pass")

	var ok bool
	Chain, ok = ParseChain(v.GetString("chain"))
	if !ok {
		return fmt.Errorf("chain undefined: %q", v.GetString("chain"))
	}

	if FirstEligibleHeight == 0 {
		FirstEligibleHeight = DefaultFirstEligibleHeight(Chain)
	}

	switch DBBackend {
	case DBBackendSQLite, DBBackendPebble:
	default:
		return fmt.Errorf("unknown db_backend %q", DBBackend)
	}
	if DBPath == "" {
		DBPath = DefaultDBPath(DBBackend)
	} else {
		DBPath = ResolvePath(DBPath)
	}

	if PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", PollInterval)
	}

	if missing {
		return ErrNoConfigFile
	}
	return nil
}

// LoadRPCCredentials applies the cookie file and checks that credentials exist.
func LoadRPCCredentials() error {
	if CookiePath != "" {
		data, err := os.ReadFile(ResolvePath(CookiePath))
		if err != nil {
			return fmt.Errorf("error reading cookie file: %w", err)
		}

		credentials := strings.SplitN(strings.TrimSpace(string(data)), ":", 2)
		if len(credentials) != 2 {
			return errors.New("cookie file is invalid")
		}
		RpcUser = credentials[0]
		RpcPass = credentials[1]
	}

	if RpcUser == "" {
		return errors.New("rpc user not set")
	}
	if RpcPass == "" {
		return errors.New("rpc pass not set")
	}
	return nil
}

// LogSettings prints the effective settings, the password excluded.
func LogSettings(logger zerolog.Logger) {
	logger.Info().
		Str("chain", ChainToString(Chain)).
		Str("rpc_endpoint", RpcEndpoint).
		Str("db_backend", DBBackend).
		Str("db_path", DBPath).
		Str("http_host", HTTPHost).
		Str("metrics_host", MetricsHost).
		Uint32("first_eligible_height", FirstEligibleHeight).
		Bool("seek_prev_outs", SeekPrevOuts).
		Int("max_parallel_tweak_computations", MaxParallelTweakComputations).
		Dur("poll_interval", PollInterval).
		Msg("settings")
}

// ResolvePath expands a leading ~ and makes the path absolute.
func ResolvePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = utils.ResolvePath(path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
