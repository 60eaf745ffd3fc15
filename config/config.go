package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
}

// GeneralConfig contains process-wide settings.
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address required")
	}
	if s.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps cannot be negative")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	return nil
}

// LLMConfig contains the generative model settings.
type LLMConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig configures the Gemini provider. An empty APIKey is allowed at
// startup; requests then fail with a configuration error.
type GeminiConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	SearchTemp       float64       `mapstructure:"search_temperature"`
	SearchMaxTokens  int           `mapstructure:"search_max_tokens"`
	EnrichTemp       float64       `mapstructure:"enrich_temperature"`
	EnrichMaxTokens  int           `mapstructure:"enrich_max_tokens"`
	BreakerFailures  uint32        `mapstructure:"breaker_failures"`
	BreakerOpenFor   time.Duration `mapstructure:"breaker_open_for"`
	BreakerHalfOpenN uint32        `mapstructure:"breaker_half_open_requests"`
}

func (g GeminiConfig) Validate() error {
	if strings.TrimSpace(g.Model) == "" {
		return fmt.Errorf("llm.gemini.model required")
	}
	if g.SearchMaxTokens <= 0 || g.EnrichMaxTokens <= 0 {
		return fmt.Errorf("llm.gemini max token settings must be > 0")
	}
	if g.SearchTemp < 0 || g.EnrichTemp < 0 {
		return fmt.Errorf("llm.gemini temperatures cannot be negative")
	}
	return nil
}

// CacheConfig sets per-kind TTLs and the in-memory capacity cap.
type CacheConfig struct {
	ArticlesTTL  time.Duration `mapstructure:"articles_ttl"`
	CharitiesTTL time.Duration `mapstructure:"charities_ttl"`
	ProtestsTTL  time.Duration `mapstructure:"protests_ttl"`
	// MaxEntries caps each in-memory kind store; 0 means unbounded.
	MaxEntries int    `mapstructure:"max_entries"`
	PruneCron  string `mapstructure:"prune_cron"`
}

func (c CacheConfig) Validate() error {
	if c.ArticlesTTL <= 0 || c.CharitiesTTL <= 0 || c.ProtestsTTL <= 0 {
		return fmt.Errorf("cache ttl values must be > 0")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	return nil
}

// RecommendConfig tunes batch sizes and the verification filter.
type RecommendConfig struct {
	ArticlesLimit      int      `mapstructure:"articles_limit"`
	CharitiesLimit     int      `mapstructure:"charities_limit"`
	ProtestsLimit      int      `mapstructure:"protests_limit"`
	BlockedDomains     []string `mapstructure:"blocked_domains"`
	EnforceFutureDates bool     `mapstructure:"enforce_future_dates"`
}

func (r RecommendConfig) Validate() error {
	for name, n := range map[string]int{
		"articles_limit":  r.ArticlesLimit,
		"charities_limit": r.CharitiesLimit,
		"protests_limit":  r.ProtestsLimit,
	} {
		if n < 1 || n > 10 {
			return fmt.Errorf("recommend.%s must be between 1 and 10", name)
		}
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings. Leaving Host empty keeps
// the result cache in memory.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Redis backend was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// PostgresConfig contains Postgres connection settings. Leaving both URL and
// Host empty keeps user ledgers in memory.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Postgres backend was configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() || strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string from either URL or the discrete fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// LedgerConfig configures the forum reward ledger.
type LedgerConfig struct {
	RewardInterval int           `mapstructure:"reward_interval"`
	MintURL        string        `mapstructure:"mint_url"`
	MintToken      string        `mapstructure:"mint_token"`
	MintTimeout    time.Duration `mapstructure:"mint_timeout"`
}

func (l LedgerConfig) Validate() error {
	if l.RewardInterval <= 0 {
		return fmt.Errorf("ledger.reward_interval must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "json")
	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 5)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.timeout", 45*time.Second)
	v.SetDefault("llm.gemini.search_temperature", 0.5)
	v.SetDefault("llm.gemini.search_max_tokens", 2048)
	v.SetDefault("llm.gemini.enrich_temperature", 0.4)
	v.SetDefault("llm.gemini.enrich_max_tokens", 1024)
	v.SetDefault("llm.gemini.breaker_failures", 5)
	v.SetDefault("llm.gemini.breaker_open_for", time.Minute)
	v.SetDefault("llm.gemini.breaker_half_open_requests", 1)
	v.SetDefault("cache.articles_ttl", 5*time.Minute)
	v.SetDefault("cache.charities_ttl", 5*time.Minute)
	v.SetDefault("cache.protests_ttl", 10*time.Minute)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.prune_cron", "*/5 * * * *")
	v.SetDefault("recommend.articles_limit", 7)
	v.SetDefault("recommend.charities_limit", 6)
	v.SetDefault("recommend.protests_limit", 5)
	v.SetDefault("recommend.enforce_future_dates", true)
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.postgres.timeout", 5*time.Second)
	v.SetDefault("ledger.reward_interval", 5)
	v.SetDefault("ledger.mint_timeout", 30*time.Second)
}

// Load reads config from path (or the default search paths when empty) and
// the AZADI_* environment. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AZADI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Existing deployments keep the key in GEMINI_API_KEY and the port in PORT.
	_ = v.BindEnv("llm.gemini.api_key", "AZADI_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("server.address", "AZADI_SERVER_ADDRESS", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Server.Address != "" && !strings.Contains(cfg.Server.Address, ":") {
		cfg.Server.Address = ":" + cfg.Server.Address
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	for _, fn := range []func() error{
		c.Server.Validate,
		c.LLM.Gemini.Validate,
		c.Cache.Validate,
		c.Recommend.Validate,
		c.Storage.Redis.Validate,
		c.Storage.Postgres.Validate,
		c.Ledger.Validate,
	} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfig is Load that panics, for command entry points.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}
