package config

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Keystore   KeystoreConfig   `mapstructure:"keystore"`
	Log        LogConfig        `mapstructure:"log"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Reward     RewardConfig     `mapstructure:"reward"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig verifies tokens presented by calling services.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type KeystoreConfig struct {
	MasterKey string `mapstructure:"master_key"` // 32-byte hex-encoded key sealing custodial private keys
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// ChainConfig describes the EVM node, the token contract and the platform's own keys.
type ChainConfig struct {
	RPCURL             string        `mapstructure:"rpc_url"`
	TokenAddress       string        `mapstructure:"token_address"`
	ChainID            int64         `mapstructure:"chain_id"` // 0 asks the node
	TreasuryPrivateKey string        `mapstructure:"treasury_private_key"`
	RelayerPrivateKey  string        `mapstructure:"relayer_private_key"`
	GasLimit           uint64        `mapstructure:"gas_limit"`
	ReceiptMaxAttempts int           `mapstructure:"receipt_max_attempts"`
	ReceiptInterval    time.Duration `mapstructure:"receipt_interval"`
	GasTopupThreshold  string        `mapstructure:"gas_topup_threshold_wei"` // decimal wei
	GasTopupAmount     string        `mapstructure:"gas_topup_amount_wei"`    // decimal wei
}

// ReceiptWait is the longest a transfer can wait for its receipt.
func (c ChainConfig) ReceiptWait() time.Duration {
	return time.Duration(c.ReceiptMaxAttempts) * c.ReceiptInterval
}

// GasTopupWei parses the gas top-up settings. The threshold may be zero, which
// disables top-ups; the amount must be positive.
func (c ChainConfig) GasTopupWei() (threshold, amount *big.Int, err error) {
	threshold, ok := new(big.Int).SetString(c.GasTopupThreshold, 10)
	if !ok || threshold.Sign() < 0 {
		return nil, nil, fmt.Errorf("chain.gas_topup_threshold_wei %q is not a wei amount", c.GasTopupThreshold)
	}
	amount, ok = new(big.Int).SetString(c.GasTopupAmount, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, nil, fmt.Errorf("chain.gas_topup_amount_wei %q must be a positive wei amount", c.GasTopupAmount)
	}
	return threshold, amount, nil
}

// lockTTLHeadroom covers the balance read and transaction submission around the receipt wait.
const lockTTLHeadroom = 10 * time.Second

type RewardConfig struct {
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockWait        time.Duration `mapstructure:"lock_wait"`
	PostSyncTimeout time.Duration `mapstructure:"post_sync_timeout"`
}

type CheckoutConfig struct {
	Modes           []string      `mapstructure:"modes"`
	DefaultMode     string        `mapstructure:"default_mode"`
	MerchantOwnerID string        `mapstructure:"merchant_owner_id"`
	TxClaimTTL      time.Duration `mapstructure:"tx_claim_ttl"`
}

type ReconcilerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Grace     time.Duration `mapstructure:"grace"`
	BatchSize int           `mapstructure:"batch_size"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`

	// SigningSecret, when set, adds an HMAC-SHA256 signature header to every event.
	SigningSecret string `mapstructure:"signing_secret"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CTL_ (Campus Token Ledger).
// Nested keys use underscore: CTL_DATABASE_HOST, CTL_CHAIN_RPC_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campus_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "campus-token-ledger")
	v.SetDefault("keystore.master_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("chain.rpc_url", "http://localhost:8545")
	v.SetDefault("chain.token_address", "")
	v.SetDefault("chain.chain_id", 0)
	v.SetDefault("chain.treasury_private_key", "")
	v.SetDefault("chain.relayer_private_key", "")
	v.SetDefault("chain.gas_limit", 300000)
	v.SetDefault("chain.receipt_max_attempts", 30)
	v.SetDefault("chain.receipt_interval", "1s")
	v.SetDefault("chain.gas_topup_threshold_wei", "1000000000000000")
	v.SetDefault("chain.gas_topup_amount_wei", "5000000000000000")
	v.SetDefault("reward.lock_ttl", "90s")
	v.SetDefault("reward.lock_wait", "45s")
	v.SetDefault("reward.post_sync_timeout", "15s")
	v.SetDefault("checkout.modes", []string{"custodial"})
	v.SetDefault("checkout.default_mode", "custodial")
	v.SetDefault("checkout.merchant_owner_id", "")
	v.SetDefault("checkout.tx_claim_ttl", "10m")
	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.interval", "1m")
	v.SetDefault("reconciler.grace", "2m")
	v.SetDefault("reconciler.batch_size", 50)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "campus.ledger.events")
	v.SetDefault("kafka.client_id", "campus-token-ledger")
	v.SetDefault("kafka.signing_secret", "")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CTL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if len(c.Keystore.MasterKey) != 64 {
		errs = append(errs, errors.New("keystore.master_key must be 32 bytes hex-encoded"))
	}
	if c.Chain.TokenAddress == "" {
		errs = append(errs, errors.New("chain.token_address is required"))
	}
	if c.Chain.TreasuryPrivateKey == "" {
		errs = append(errs, errors.New("chain.treasury_private_key is required"))
	}
	if c.Chain.RelayerPrivateKey == "" {
		errs = append(errs, errors.New("chain.relayer_private_key is required"))
	}
	if c.Checkout.MerchantOwnerID == "" {
		errs = append(errs, errors.New("checkout.merchant_owner_id is required"))
	}
	if len(c.Checkout.Modes) == 0 {
		errs = append(errs, errors.New("checkout.modes must enable at least one mode"))
	} else if !slices.Contains(c.Checkout.Modes, c.Checkout.DefaultMode) {
		errs = append(errs, fmt.Errorf("checkout.default_mode %q is not in checkout.modes", c.Checkout.DefaultMode))
	}
	if _, _, err := c.Chain.GasTopupWei(); err != nil {
		errs = append(errs, err)
	}
	// The treasury lock is held across the balance read, the transfer and the receipt wait.
	if need := c.Chain.ReceiptWait() + lockTTLHeadroom; c.Reward.LockTTL <= need {
		errs = append(errs, fmt.Errorf("reward.lock_ttl %s must exceed %s (receipt wait plus headroom)", c.Reward.LockTTL, need))
	}
	return errors.Join(errs...)
}
