// Package config loads kittycore runtime settings from KITTYCORE_*
// environment variables.
package config

import (
	"fmt"

	"kittycore/internal/blob"
	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

// Config is the full runtime configuration of the kittycore CLI.
type Config struct {
	Storage StorageConfig `envPrefix:"KITTYCORE_"`
	Blob    BlobConfig    `envPrefix:"KITTYCORE_BLOB_"`
	AMQP    AMQPConfig    `envPrefix:"KITTYCORE_AMQP_"`

	LogLevel  string `env:"KITTYCORE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"KITTYCORE_LOG_FORMAT" envDefault:"text"`

	// ExistentialDeposit is the minimum balance the ledger keeps alive.
	ExistentialDeposit uint64 `env:"KITTYCORE_EXISTENTIAL_DEPOSIT" envDefault:"1"`
}

// StorageConfig selects the registry backend.
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"kittycore.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	MaxOwned    int    `env:"MAX_OWNED" envDefault:"100"`
}

// BlobConfig selects the snapshot archive backend.
type BlobConfig struct {
	Driver      string `env:"DRIVER" envDefault:"fs"`
	FSRoot      string `env:"FS_ROOT" envDefault:"kittycore-archive"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY_ID"`
	S3Secret    string `env:"S3_SECRET_ACCESS_KEY"`
	S3PathStyle bool   `env:"S3_PATH_STYLE"`
}

// AMQPConfig configures the optional event relay. An empty URL disables it.
type AMQPConfig struct {
	URL        string `env:"URL"`
	Exchange   string `env:"EXCHANGE" envDefault:"kittycore.events"`
	RoutingKey string `env:"ROUTING_KEY" envDefault:"kitties"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the backends cannot honour.
func (c Config) Validate() error {
	if c.Storage.MaxOwned <= 0 {
		return fmt.Errorf("KITTYCORE_MAX_OWNED must be positive, got %d", c.Storage.MaxOwned)
	}
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("KITTYCORE_POSTGRES_DSN required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("KITTYCORE_BLOB_S3_BUCKET required for s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	return nil
}

// StorageOptions maps the storage settings onto core.StorageOptions.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		MaxOwned:    c.Storage.MaxOwned,
	}
}

// BlobStoreConfig maps the blob settings onto blob.Config.
func (c Config) BlobStoreConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Region:          c.Blob.S3Region,
			Bucket:          c.Blob.S3Bucket,
			Endpoint:        c.Blob.S3Endpoint,
			AccessKeyID:     c.Blob.S3AccessKey,
			SecretAccessKey: c.Blob.S3Secret,
			PathStyle:       c.Blob.S3PathStyle,
		},
	}
}

// Deposit returns the configured existential deposit as a ledger balance.
func (c Config) Deposit() domain.Balance {
	return domain.Balance(c.ExistentialDeposit)
}
