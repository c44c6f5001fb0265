// Package utils loads the service configuration.
//
// Values are layered, later layers winning: built-in defaults, an optional
// YAML file (MOVIEHUB_CONFIG, else ./config.yaml when present), then
// MOVIEHUB_* environment variables.
package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"moviehub/internal/logging"
	"moviehub/pkg/database"
)

const (
	EnvPrefix         = "MOVIEHUB_"
	ConfigPathEnvVar  = "MOVIEHUB_CONFIG"
	DefaultConfigFile = "config.yaml"

	// DevJWTSecret is only acceptable for local runs; main warns about it.
	DevJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Gate     GateConfig     `koanf:"gate"`
	Matching MatchingConfig `koanf:"matching"`
	Demand   DemandConfig   `koanf:"demand"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Delivery DeliveryConfig `koanf:"delivery"`
	Notify   NotifyConfig   `koanf:"notify"`
	Logging  LogConfig      `koanf:"logging"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	// TCPSyncAddr enables the line-oriented event feed when set.
	TCPSyncAddr    string   `koanf:"tcp_sync_addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type AuthConfig struct {
	JWTSecret            string        `koanf:"jwt_secret" validate:"required,min=16"`
	JWTIssuer            string        `koanf:"jwt_issuer"`
	JWTDuration          time.Duration `koanf:"jwt_duration" validate:"gte=0"`
	OperatorUsername     string        `koanf:"operator_username"`
	OperatorPasswordHash string        `koanf:"operator_password_hash"`
}

type GateConfig struct {
	Enabled       bool          `koanf:"enabled"`
	MembershipURL string        `koanf:"membership_url" validate:"omitempty,url"`
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`
	// RateLimit is queries per RateWindow per user; 0 disables limiting.
	RateLimit  int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow time.Duration `koanf:"rate_window" validate:"gte=0"`
}

type MatchingConfig struct {
	Cutoff float64 `koanf:"cutoff" validate:"gt=0,lte=1"`
}

type DemandConfig struct {
	Threshold      int64 `koanf:"threshold" validate:"gte=1"`
	OnCrossingOnly bool  `koanf:"on_crossing_only"`
}

type RankingConfig struct {
	TopN       int `koanf:"top_n" validate:"gte=1,lte=100"`
	PoolSize   int `koanf:"pool_size" validate:"gte=1,lte=100"`
	ResultSize int `koanf:"result_size" validate:"gte=1,lte=100"`
}

type DeliveryConfig struct {
	Store      string        `koanf:"store" validate:"oneof=memory badger"`
	BadgerDir  string        `koanf:"badger_dir"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"gte=0"`
	RetractURL string        `koanf:"retract_url" validate:"omitempty,url"`
	Timeout    time.Duration `koanf:"timeout" validate:"gte=0"`
}

type NotifyConfig struct {
	UDPAddr    string `koanf:"udp_addr"`
	WebhookURL string `koanf:"webhook_url" validate:"omitempty,url"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func (c LogConfig) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Level
	lc.Format = c.Format
	lc.Caller = c.Caller
	return lc
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: database.DefaultConfig().Path},
		Auth: AuthConfig{
			JWTSecret:   DevJWTSecret,
			JWTIssuer:   "moviehub",
			JWTDuration: 24 * time.Hour,
		},
		Gate: GateConfig{
			Timeout:    5 * time.Second,
			RateLimit:  20,
			RateWindow: time.Minute,
		},
		Matching: MatchingConfig{Cutoff: 0.6},
		Demand:   DemandConfig{Threshold: 3},
		Ranking:  RankingConfig{TopN: 10, PoolSize: 10, ResultSize: 3},
		Delivery: DeliveryConfig{
			Store:    "memory",
			TokenTTL: 48 * time.Hour,
			Timeout:  5 * time.Second,
		},
		Logging: LogConfig{Level: "info", Format: "json"},
	}
}

// envMappings maps MOVIEHUB_* variables (prefix stripped, lowercased) to
// config keys. Unlisted variables are ignored.
var envMappings = map[string]string{
	"addr":             "server.addr",
	"shutdown_timeout": "server.shutdown_timeout",
	"tcp_sync_addr":    "server.tcp_sync_addr",
	"allowed_origins":  "server.allowed_origins",

	"db_path": "database.path",

	"jwt_secret":             "auth.jwt_secret",
	"jwt_issuer":             "auth.jwt_issuer",
	"jwt_duration":           "auth.jwt_duration",
	"operator_username":      "auth.operator_username",
	"operator_password_hash": "auth.operator_password_hash",

	"gate_enabled":        "gate.enabled",
	"gate_membership_url": "gate.membership_url",
	"gate_timeout":        "gate.timeout",
	"gate_rate_limit":     "gate.rate_limit",
	"gate_rate_window":    "gate.rate_window",

	"match_cutoff": "matching.cutoff",

	"demand_threshold":        "demand.threshold",
	"demand_on_crossing_only": "demand.on_crossing_only",

	"ranking_top_n":       "ranking.top_n",
	"ranking_pool_size":   "ranking.pool_size",
	"ranking_result_size": "ranking.result_size",

	"delivery_store":       "delivery.store",
	"delivery_badger_dir":  "delivery.badger_dir",
	"delivery_token_ttl":   "delivery.token_ttl",
	"delivery_retract_url": "delivery.retract_url",
	"delivery_timeout":     "delivery.timeout",

	"notify_udp_addr":    "notify.udp_addr",
	"notify_webhook_url": "notify.webhook_url",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransform(key string) string {
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return envMappings[k]
}

var validate = validator.New()

// Load builds the configuration from defaults, file and environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := configPath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// comma-separated lists arrive from the environment as one string
	if s, ok := k.Get("server.allowed_origins").(string); ok {
		if err := k.Set("server.allowed_origins", splitList(s)); err != nil {
			return nil, fmt.Errorf("split allowed_origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Gate.Enabled && c.Gate.MembershipURL == "" {
		return errors.New("gate.membership_url is required when gate.enabled is true")
	}
	if c.Delivery.Store == "badger" && c.Delivery.BadgerDir == "" {
		return errors.New("delivery.badger_dir is required when delivery.store is badger")
	}
	return nil
}

func configPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
