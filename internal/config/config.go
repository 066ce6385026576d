package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ABIFRAME"

// Config holds settings for the traces and logs commands, loaded from flags,
// env, or config file.
type Config struct {
	In        string
	InFormat  string
	Out       string
	OutFormat string
	Errors    string
	Alias     map[string]string

	ABIPaths        map[string]string
	ABIFile         string
	Etherscan       bool
	EtherscanURL    string
	EtherscanAPIKey string
	EtherscanRPS    float64
	CacheTTL        time.Duration
	CacheSize       int

	Workers     int
	PGDSN       string
	PGBatchSize int
	SumColumn   string
	SumDecimals int32
	Progress    bool

	RPCURL       string
	FromBlock    uint64
	ToBlock      uint64
	Addresses    []string
	Topic0       []string
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration

	LogLevel string
}

// FetchConfig holds settings for the fetch-abi command.
type FetchConfig struct {
	Address         string
	Out             string
	EtherscanURL    string
	EtherscanAPIKey string
	EtherscanRPS    float64
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	v.SetDefault("out-format", "")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("etherscan", false)
	v.SetDefault("etherscan-url", "https://api.etherscan.io/api")
	v.SetDefault("etherscan-rps", 5.0)
	v.SetDefault("cache-ttl", 24*time.Hour)
	v.SetDefault("cache-size", 1024)
	v.SetDefault("workers", 0)
	v.SetDefault("pg-batch-size", 1000)
	v.SetDefault("sum-decimals", 0)
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if err := bindAndRead(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		In:              v.GetString("in"),
		InFormat:        strings.ToLower(v.GetString("in-format")),
		Out:             v.GetString("out"),
		OutFormat:       strings.ToLower(v.GetString("out-format")),
		Errors:          v.GetString("errors"),
		Alias:           getStringMap(v, "alias"),
		ABIPaths:        getStringMap(v, "abi"),
		ABIFile:         v.GetString("abi-file"),
		Etherscan:       v.GetBool("etherscan"),
		EtherscanURL:    v.GetString("etherscan-url"),
		EtherscanAPIKey: v.GetString("etherscan-api-key"),
		EtherscanRPS:    v.GetFloat64("etherscan-rps"),
		CacheTTL:        v.GetDuration("cache-ttl"),
		CacheSize:       v.GetInt("cache-size"),
		Workers:         v.GetInt("workers"),
		PGDSN:           v.GetString("pg-dsn"),
		PGBatchSize:     v.GetInt("pg-batch-size"),
		SumColumn:       v.GetString("sum-column"),
		SumDecimals:     v.GetInt32("sum-decimals"),
		Progress:        v.GetBool("progress"),
		RPCURL:          v.GetString("rpc"),
		FromBlock:       v.GetUint64("from"),
		ToBlock:         v.GetUint64("to"),
		Addresses:       getStringSlice(v, "address"),
		Topic0:          getStringSlice(v, "topic0"),
		BatchSize:       v.GetUint64("batch-size"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v := newViper()

	v.SetDefault("etherscan-url", "https://api.etherscan.io/api")
	v.SetDefault("etherscan-rps", 5.0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if err := bindAndRead(v, cfgFile, flags); err != nil {
		return FetchConfig{}, err
	}

	cfg := FetchConfig{
		Address:         v.GetString("address"),
		Out:             v.GetString("out"),
		EtherscanURL:    v.GetString("etherscan-url"),
		EtherscanAPIKey: v.GetString("etherscan-api-key"),
		EtherscanRPS:    v.GetFloat64("etherscan-rps"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func bindAndRead(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
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
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getStringMap reads a map from a config table, a map flag, or a
// comma-separated key=value string.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
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
