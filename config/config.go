package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	dbm "github.com/tendermint/tm-db"

	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/types"
)

const (
	// SinkPSQL stores rows in PostgreSQL.
	SinkPSQL = "psql"
	// SinkMemory keeps rows in memory, for dry runs.
	SinkMemory = "memory"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultProjectsinkDir = ".projectsink"
	defaultConfigDir      = "config"
	defaultDataDir        = "data"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultStakeWatchDir  = defaultDataDir
)

// Config defines the top level configuration for the indexer.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Chain           *ChainConfig           `mapstructure:"chain"`
	Tokens          *TokensConfig          `mapstructure:"tokens"`
	Indexer         *IndexerConfig         `mapstructure:"indexer"`
	StakeWatch      *StakeWatchConfig      `mapstructure:"stake-watch"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Chain:           DefaultChainConfig(),
		Tokens:          DefaultTokensConfig(),
		Indexer:         DefaultIndexerConfig(),
		StakeWatch:      DefaultStakeWatchConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Indexer.Sink = SinkMemory
	cfg.StakeWatch.DBBackend = string(dbm.MemDBBackend)
	return cfg
}

// SetRoot sets the RootDir for all Config structs.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.Tokens.RootDir = root
	cfg.StakeWatch.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Chain.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [chain] section: %w", err)
	}
	if err := cfg.Tokens.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [tokens] section: %w", err)
	}
	if err := cfg.Indexer.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [indexer] section: %w", err)
	}
	if err := cfg.StakeWatch.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [stake-watch] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for the indexer.
type BaseConfig struct { //nolint: maligned
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
	}
}

// ValidateBasic performs basic validation.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatJSON, log.LogFormatText, log.LogFormatPlain:
	default:
		return errors.New("unknown log format (must be 'plain', 'text' or 'json')")
	}

	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}

//-----------------------------------------------------------------------------
// ChainConfig

// ChainConfig describes the chain the transactions come from.
type ChainConfig struct {
	// Network tag used to render addresses: "mainnet" or "testnet".
	Network string `mapstructure:"network"`
}

// DefaultChainConfig returns a default configuration for the chain.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{Network: string(types.Mainnet)}
}

// ValidateBasic performs basic validation.
func (cfg *ChainConfig) ValidateBasic() error {
	return types.Network(cfg.Network).Validate()
}

//-----------------------------------------------------------------------------
// TokensConfig

// TokensConfig lists the protocol tokens that mark project, project detail
// and project script outputs. Units are hex-encoded policy ids followed by
// hex-encoded asset names.
type TokensConfig struct {
	RootDir string `mapstructure:"home"`

	Project       []string `mapstructure:"project"`
	ProjectDetail []string `mapstructure:"project-detail"`
	ProjectScript []string `mapstructure:"project-script"`

	// Optional TOML file listing further tokens, merged with the lists
	// above.
	ManifestFile string `mapstructure:"manifest-file"`
}

// DefaultTokensConfig returns an empty token configuration.
func DefaultTokensConfig() *TokensConfig {
	return &TokensConfig{
		Project:       []string{},
		ProjectDetail: []string{},
		ProjectScript: []string{},
	}
}

// Manifest returns the absolute path of the manifest file, or "" if none is
// configured.
func (cfg *TokensConfig) Manifest() string {
	if cfg.ManifestFile == "" {
		return ""
	}
	return rootify(cfg.ManifestFile, cfg.RootDir)
}

// ValidateBasic checks that every configured unit is well formed.
func (cfg *TokensConfig) ValidateBasic() error {
	for name, units := range map[string][]string{
		"project":        cfg.Project,
		"project-detail": cfg.ProjectDetail,
		"project-script": cfg.ProjectScript,
	} {
		for _, u := range units {
			if _, err := types.ParseUnit(u); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

// Resolve returns the configured units merged with those of the manifest
// file.
func (cfg *TokensConfig) Resolve() (*TokenManifest, error) {
	out := &TokenManifest{
		Project:       append([]string(nil), cfg.Project...),
		ProjectDetail: append([]string(nil), cfg.ProjectDetail...),
		ProjectScript: append([]string(nil), cfg.ProjectScript...),
	}
	if path := cfg.Manifest(); path != "" {
		m, err := LoadTokenManifest(path)
		if err != nil {
			return nil, err
		}
		out.Project = append(out.Project, m.Project...)
		out.ProjectDetail = append(out.ProjectDetail, m.ProjectDetail...)
		out.ProjectScript = append(out.ProjectScript, m.ProjectScript...)
	}
	return out, nil
}

//-----------------------------------------------------------------------------
// IndexerConfig

// IndexerConfig defines where indexed rows go.
type IndexerConfig struct {
	// The backend receiving rows:
	//   1) "psql" - PostgreSQL, using the connection string below.
	//   2) "memory" - rows are kept in memory and discarded on exit.
	Sink string `mapstructure:"sink"`

	// The PostgreSQL connection string, used when sink is "psql".
	PsqlConn string `mapstructure:"psql-conn"`

	// How long view refresh requests are coalesced before the refresh runs.
	RefreshInterval time.Duration `mapstructure:"refresh-interval"`
}

// DefaultIndexerConfig returns a default configuration for the indexer.
func DefaultIndexerConfig() *IndexerConfig {
	return &IndexerConfig{
		Sink:            SinkPSQL,
		PsqlConn:        "",
		RefreshInterval: time.Second,
	}
}

// ValidateBasic performs basic validation.
func (cfg *IndexerConfig) ValidateBasic() error {
	switch cfg.Sink {
	case SinkPSQL, SinkMemory:
	default:
		return fmt.Errorf("unsupported sink %q", cfg.Sink)
	}
	if cfg.RefreshInterval < 0 {
		return errors.New("refresh-interval can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// StakeWatchConfig

// StakeWatchConfig defines the storage of the stake-watch registry.
type StakeWatchConfig struct {
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`
}

// DefaultStakeWatchConfig returns a default configuration for the registry.
func DefaultStakeWatchConfig() *StakeWatchConfig {
	return &StakeWatchConfig{
		DBBackend: string(dbm.GoLevelDBBackend),
		DBPath:    defaultStakeWatchDir,
	}
}

// DBDir returns the full path to the database directory.
func (cfg *StakeWatchConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation.
func (cfg *StakeWatchConfig) ValidateBasic() error {
	switch dbm.BackendType(cfg.DBBackend) {
	case dbm.GoLevelDBBackend, dbm.CLevelDBBackend, dbm.BoltDBBackend,
		dbm.RocksDBBackend, dbm.BadgerDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("unknown db-backend %q", cfg.DBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "projectsink",
	}
}

// ValidateBasic performs basic validation.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus-listen-addr can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
