package config

import (
	"time"
)

const (
	// TaprootActivation is the first mainnet block where taproot outputs
	// could be spent under the new rules
	TaprootActivation    uint32 = 709632
	ConfigFileName       string = "tweaks.toml"
	DefaultBaseDirectory string = "~/.blindbit-tweaks"

	DBBackendSQLite = "sqlite"
	DBBackendPebble = "pebble"
)

var (
	LogLevel     = "info"
	LogsPath     = ""
	LogToConsole = true
)

var (
	RpcEndpoint = "http://127.0.0.1:8332" // default local node
	CookiePath  = ""
	RpcUser     = ""
	RpcPass     = ""

	BaseDirectory = ""
	DBBackend     = DBBackendSQLite
	DBPath        = ""

	HTTPHost = "127.0.0.1:8000"

	// MetricsHost is where the indexer serves /metrics, empty disables it
	MetricsHost = "127.0.0.1:9100"
)

type chain int

const (
	Unknown chain = iota
	Mainnet
	Signet
	Regtest
	Testnet3
)

// control vars
var (
	Chain = Unknown

	// FirstEligibleHeight is where indexing starts on an empty store.
	// Zero means the chain default.
	FirstEligibleHeight uint32

	// SeekPrevOuts pulls all spent scripts of a block with one getblock call
	SeekPrevOuts bool

	// MaxParallelTweakComputations bounds the goroutines computing tweaks for a
	// block. Zero or less spawns one per transaction.
	MaxParallelTweakComputations = 0

	PollInterval = 5 * time.Minute
)

// SetDirectories resolves BaseDirectory and derives the default paths.
func SetDirectories() {
	BaseDirectory = ResolvePath(BaseDirectory)
	LogsPath = BaseDirectory + "/logs"
	DBPath = ""
}

// DefaultDBPath is the store location inside the base directory.
func DefaultDBPath(backend string) string {
	if backend == DBBackendPebble {
		return BaseDirectory + "/data/pebble"
	}
	return BaseDirectory + "/data/tweaks.db"
}

// DefaultFirstEligibleHeight is the first height that can contain taproot spends.
func DefaultFirstEligibleHeight(c chain) uint32 {
	switch c {
	case Mainnet:
		return TaprootActivation
	default:
		return 1
	}
}

func ChainToString(c chain) string {
	switch c {
	case Mainnet:
		return "main"
	case Signet:
		return "signet"
	case Regtest:
		return "regtest"
	case Testnet3:
		return "testnet"
	default:
		return "unknown"
	}
}

func ParseChain(s string) (chain, bool) {
	switch s {
	case "main":
		return Mainnet, true
	case "signet":
		return Signet, true
	case "regtest":
		return Regtest, true
	case "testnet":
		return Testnet3, true
	default:
		return Unknown, false
	}
}
