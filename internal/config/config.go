// Package config holds process configuration. Precedence, lowest to
// highest: defaults, TOML file, CREBITO_* environment variables, flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	// ListenAddr is the worker's TCP ingress address.
	ListenAddr string

	// CacheEndpoint is dialed by workers; CacheBind is bound by the
	// authority process.
	CacheEndpoint string
	CacheBind     string
	// CacheTimeout bounds the wait for an authority reply.
	CacheTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	DatabaseURL   string
	StorageDriver string

	// Accounts is N: account ids are 1..N.
	Accounts int
	// SeedLimits[i] is the limit for account i+1 under the memory driver.
	SeedLimits []int64

	// BatchSize caps one aggregator round trip to the ledger.
	BatchSize int

	// Standalone wires authority, aggregator and memory store into the
	// worker process itself.
	Standalone bool
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":9999",
		CacheEndpoint: "tcp://127.0.0.1:6456",
		CacheBind:     "tcp://*:6456",
		CacheTimeout:  2 * time.Second,
		KafkaBrokers:  []string{"localhost:9092"},
		KafkaTopic:    "crebito-durable-writes",
		KafkaGroupID:  "crebito-coordinator",
		StorageDriver: DriverPostgres,
		Accounts:      5,
		SeedLimits:    []int64{100000, 80000, 1000000, 10000000, 500000},
		BatchSize:     200,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Accounts < 1 {
		return fmt.Errorf("accounts must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.CacheTimeout <= 0 {
		return fmt.Errorf("cache timeout must be positive")
	}

	driver := c.StorageDriver
	if c.Standalone {
		driver = DriverMemory
	}
	switch driver {
	case DriverPostgres:
		// The database URL is checked when the store is opened; the
		// authority role never touches storage.
	case DriverMemory:
		if len(c.SeedLimits) < c.Accounts {
			return fmt.Errorf("memory driver needs a seed limit for each of the %d accounts", c.Accounts)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}

// AccountLimits maps account ids to their seed limits.
func (c *Config) AccountLimits() map[int]int64 {
	limits := make(map[int]int64, c.Accounts)
	for id := 1; id <= c.Accounts; id++ {
		limits[id] = c.SeedLimits[id-1]
	}
	return limits
}

// fileConfig mirrors Config for TOML decoding; absent keys leave the
// existing value untouched.
type fileConfig struct {
	ListenAddr    *string  `toml:"listen_addr"`
	CacheEndpoint *string  `toml:"cache_endpoint"`
	CacheBind     *string  `toml:"cache_bind"`
	CacheTimeout  *string  `toml:"cache_timeout"`
	KafkaBrokers  []string `toml:"kafka_brokers"`
	KafkaTopic    *string  `toml:"kafka_topic"`
	KafkaGroupID  *string  `toml:"kafka_group_id"`
	DatabaseURL   *string  `toml:"database_url"`
	StorageDriver *string  `toml:"storage_driver"`
	Accounts      *int     `toml:"accounts"`
	SeedLimits    []int64  `toml:"seed_limits"`
	BatchSize     *int     `toml:"batch_size"`
	Standalone    *bool    `toml:"standalone"`
}

// LoadFile overlays values from a TOML file onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.CacheEndpoint, fc.CacheEndpoint)
	setString(&cfg.CacheBind, fc.CacheBind)
	setString(&cfg.KafkaTopic, fc.KafkaTopic)
	setString(&cfg.KafkaGroupID, fc.KafkaGroupID)
	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	setString(&cfg.StorageDriver, fc.StorageDriver)
	setInt(&cfg.Accounts, fc.Accounts)
	setInt(&cfg.BatchSize, fc.BatchSize)
	if fc.Standalone != nil {
		cfg.Standalone = *fc.Standalone
	}
	if len(fc.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = fc.KafkaBrokers
	}
	if len(fc.SeedLimits) > 0 {
		cfg.SeedLimits = fc.SeedLimits
	}
	if fc.CacheTimeout != nil {
		d, err := time.ParseDuration(*fc.CacheTimeout)
		if err != nil {
			return fmt.Errorf("parse cache_timeout: %w", err)
		}
		cfg.CacheTimeout = d
	}
	return nil
}

// ApplyEnv overlays CREBITO_* environment variables onto cfg.
// DATABASE_URL is honored as a fallback for CREBITO_DATABASE_URL.
func ApplyEnv(cfg *Config) error {
	envString(&cfg.ListenAddr, "CREBITO_LISTEN_ADDR")
	envString(&cfg.CacheEndpoint, "CREBITO_CACHE_ENDPOINT")
	envString(&cfg.CacheBind, "CREBITO_CACHE_BIND")
	envString(&cfg.KafkaTopic, "CREBITO_KAFKA_TOPIC")
	envString(&cfg.KafkaGroupID, "CREBITO_KAFKA_GROUP_ID")
	envString(&cfg.StorageDriver, "CREBITO_STORAGE_DRIVER")

	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.DatabaseURL, "CREBITO_DATABASE_URL")

	if v := os.Getenv("CREBITO_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CREBITO_SEED_LIMITS"); v != "" {
		limits, err := parseLimits(v)
		if err != nil {
			return fmt.Errorf("CREBITO_SEED_LIMITS: %w", err)
		}
		cfg.SeedLimits = limits
	}
	if v := os.Getenv("CREBITO_ACCOUNTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CREBITO_ACCOUNTS: %w", err)
		}
		cfg.Accounts = n
	}
	if v := os.Getenv("CREBITO_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CREBITO_BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = n
	}
	if v := os.Getenv("CREBITO_CACHE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CREBITO_CACHE_TIMEOUT: %w", err)
		}
		cfg.CacheTimeout = d
	}
	if v := os.Getenv("CREBITO_STANDALONE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CREBITO_STANDALONE: %w", err)
		}
		cfg.Standalone = b
	}
	return nil
}

func parseLimits(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	limits := make([]int64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		limits = append(limits, n)
	}
	return limits, nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil && *v > 0 {
		*dst = *v
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
