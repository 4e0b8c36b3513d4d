// Package config loads the metaquoter command configuration from a config
// file, METAQUOTER_ environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/state"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "METAQUOTER"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel     slog.Level
	ListenAddr   string
	CORSOrigins  []string
	StreamURL    string
	SnapshotFile string
	BufferSize   uint
	Workers      int
	Timeout      time.Duration

	Versions       metaquoter.Versions
	Schedule       gas.Schedule
	HopCurrencies  []currency.Currency
	PoolKeyOptions []metaquoter.PoolKeyOptions

	PoolManager common.Address
	Quoter      common.Address
	GasLimit    uint64
}

// DefaultPoolKeyOptions are the standard fee tiers without hooks.
func DefaultPoolKeyOptions() []metaquoter.PoolKeyOptions {
	return []metaquoter.PoolKeyOptions{
		{Fee: 100, TickSpacing: 1},
		{Fee: 500, TickSpacing: 10},
		{Fee: 3000, TickSpacing: 60},
		{Fee: 10000, TickSpacing: 200},
	}
}

// StateOptions returns the snapshot options the configuration describes.
func (c *Config) StateOptions() state.Options {
	return state.Options{
		PoolManager: c.PoolManager,
		Quoter:      c.Quoter,
		Schedule:    c.Schedule,
		GasLimit:    c.GasLimit,
	}
}

// validate checks the values every command needs.
func (c *Config) validate() error {
	if c.Workers < 1 {
		return errors.New("config: workers must be greater than 0")
	}
	if c.BufferSize < 1 {
		return errors.New("config: buffer-size must be greater than 0")
	}
	if c.Versions == 0 {
		return errors.New("config: at least one version is required")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.StreamURL != "" && c.SnapshotFile != "" {
		return errors.New("config: stream-url and snapshot-file are mutually exclusive")
	}
	for i, o := range c.PoolKeyOptions {
		if o.Fee >= 1<<24 {
			return fmt.Errorf("config: pool-key-options[%d]: fee %d exceeds uint24", i, o.Fee)
		}
		if o.TickSpacing < 1 || o.TickSpacing >= 1<<23 {
			return fmt.Errorf("config: pool-key-options[%d]: tick spacing %d out of range", i, o.TickSpacing)
		}
	}
	return nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("listen-addr", ":8545")
	v.SetDefault("cors-origins", []string{"*"})
	v.SetDefault("buffer-size", uint(100))
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("versions", []string{"v2", "v3", "v4"})
	v.SetDefault("pool-manager", state.DefaultPoolManager.Hex())
	v.SetDefault("quoter", state.DefaultQuoter.Hex())

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("metaquoter")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:   v.GetString("listen-addr"),
		CORSOrigins:  getStringSlice(v, "cors-origins"),
		StreamURL:    v.GetString("stream-url"),
		SnapshotFile: v.GetString("snapshot-file"),
		BufferSize:   v.GetUint("buffer-size"),
		Workers:      v.GetInt("workers"),
		Timeout:      v.GetDuration("timeout"),
		GasLimit:     v.GetUint64("gas-limit"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return Config{}, fmt.Errorf("config: log-level: %w", err)
	}

	versions, err := metaquoter.ParseVersions(getStringSlice(v, "versions"))
	if err != nil {
		return Config{}, fmt.Errorf("config: versions: %w", err)
	}
	cfg.Versions = versions

	for _, key := range []string{"pool-manager", "quoter"} {
		if s := v.GetString(key); !common.IsHexAddress(s) {
			return Config{}, fmt.Errorf("config: %s: invalid address %q", key, s)
		}
	}
	cfg.PoolManager = common.HexToAddress(v.GetString("pool-manager"))
	cfg.Quoter = common.HexToAddress(v.GetString("quoter"))

	hops := getStringSlice(v, "hop-currencies")
	cfg.HopCurrencies = make([]currency.Currency, 0, len(hops))
	for _, hop := range hops {
		if !common.IsHexAddress(hop) {
			return Config{}, fmt.Errorf("config: hop-currencies: invalid address %q", hop)
		}
		cfg.HopCurrencies = append(cfg.HopCurrencies, currency.HexToCurrency(hop))
	}

	// the schedule and pool options are structured, so they only come from
	// the config file
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))

	cfg.Schedule = gas.DefaultSchedule()
	if v.IsSet("gas") {
		if err := v.UnmarshalKey("gas", &cfg.Schedule, decodeHook); err != nil {
			return Config{}, fmt.Errorf("config: gas: %w", err)
		}
	}

	cfg.PoolKeyOptions = DefaultPoolKeyOptions()
	if v.IsSet("pool-key-options") {
		cfg.PoolKeyOptions = nil
		if err := v.UnmarshalKey("pool-key-options", &cfg.PoolKeyOptions, decodeHook); err != nil {
			return Config{}, fmt.Errorf("config: pool-key-options: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
