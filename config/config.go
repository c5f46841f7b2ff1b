package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/notify"
	"secanalytics/service"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. SECANALYTICS_BACKEND_URL
const EnvPrefix = "SECANALYTICS"

// Config holds all configuration for the secanalytics service and CLI
type Config struct {
	Backend struct {
		URL                string        `mapstructure:"url" yaml:"url" validate:"required,url"`
		Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
		InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
		Auth               struct {
			Mode            string `mapstructure:"mode" yaml:"mode" validate:"oneof=none basic sigv4"`
			Username        string `mapstructure:"username" yaml:"username"`
			Password        string `mapstructure:"password" yaml:"password"`
			Region          string `mapstructure:"region" yaml:"region"`
			Service         string `mapstructure:"service" yaml:"service"`
			AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
			SessionToken    string `mapstructure:"session_token" yaml:"session_token"`
		} `mapstructure:"auth" yaml:"auth"`
		RateLimit struct {
			RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
			Burst             int     `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
		} `mapstructure:"rate_limit" yaml:"rate_limit"`
		CircuitBreaker struct {
			MaxFailures         int `mapstructure:"max_failures" yaml:"max_failures" validate:"gte=1"`
			TimeoutSeconds      int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=1"`
			MaxHalfOpenRequests int `mapstructure:"max_half_open_requests" yaml:"max_half_open_requests" validate:"gte=1"`
		} `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
	} `mapstructure:"backend" yaml:"backend"`

	Refresh struct {
		// Interval between automatic refreshes in serve mode; 0 disables them
		Interval        time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`
		Start           string        `mapstructure:"start" yaml:"start" validate:"required"`
		End             string        `mapstructure:"end" yaml:"end" validate:"required"`
		PageSize        int           `mapstructure:"page_size" yaml:"page_size" validate:"gte=1,lte=10000"`
		PageConcurrency int           `mapstructure:"page_concurrency" yaml:"page_concurrency" validate:"gte=1,lte=32"`
	} `mapstructure:"refresh" yaml:"refresh"`

	Cache struct {
		RuleCacheSize int           `mapstructure:"rule_cache_size" yaml:"rule_cache_size" validate:"gte=0"`
		RuleCacheTTL  time.Duration `mapstructure:"rule_cache_ttl" yaml:"rule_cache_ttl" validate:"gt=0"`
		Redis         struct {
			Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
			Addr     string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
			Password string `mapstructure:"password" yaml:"password"`
			DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
			PoolSize int    `mapstructure:"pool_size" yaml:"pool_size" validate:"gte=0"`
			Prefix   string `mapstructure:"prefix" yaml:"prefix"`
		} `mapstructure:"redis" yaml:"redis"`
	} `mapstructure:"cache" yaml:"cache"`

	API struct {
		Port           int      `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
		Host           string   `mapstructure:"host" yaml:"host"`
		TLS            bool     `mapstructure:"tls" yaml:"tls"`
		CertFile       string   `mapstructure:"cert_file" yaml:"cert_file" validate:"required_if=TLS true"`
		KeyFile        string   `mapstructure:"key_file" yaml:"key_file" validate:"required_if=TLS true"`
		AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
		RateLimit      struct {
			RequestsPerSecond int `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=1"`
			Burst             int `mapstructure:"burst" yaml:"burst" validate:"gte=1"`
		} `mapstructure:"rate_limit" yaml:"rate_limit"`
	} `mapstructure:"api" yaml:"api"`

	Auth struct {
		Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
		Username       string        `mapstructure:"username" yaml:"username" validate:"required_if=Enabled true"`
		Password       string        `mapstructure:"password" yaml:"password"`
		HashedPassword string        `mapstructure:"-" yaml:"-"`
		BcryptCost     int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost" validate:"gte=4,lte=31"`
		JWTSecret      string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
		JWTExpiry      time.Duration `mapstructure:"jwt_expiry" yaml:"jwt_expiry" validate:"gt=0"`
	} `mapstructure:"auth" yaml:"auth"`

	Notifications struct {
		Channels []notify.ChannelConfig `mapstructure:"channels" yaml:"channels"`
	} `mapstructure:"notifications" yaml:"notifications"`

	Logging struct {
		Level    string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
		Encoding string `mapstructure:"encoding" yaml:"encoding" validate:"oneof=console json"`
	} `mapstructure:"logging" yaml:"logging"`

	Tracing struct {
		Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
		SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio" validate:"gte=0,lte=1"`
	} `mapstructure:"tracing" yaml:"tracing"`

	Secrets struct {
		Provider string `mapstructure:"provider" yaml:"provider" validate:"oneof=env vault aws"`
		Vault    struct {
			Address string `mapstructure:"address" yaml:"address"`
			Token   string `mapstructure:"token" yaml:"token"`
			Path    string `mapstructure:"path" yaml:"path"`
		} `mapstructure:"vault" yaml:"vault"`
		AWS struct {
			Region    string `mapstructure:"region" yaml:"region"`
			AccessKey string `mapstructure:"access_key" yaml:"access_key"`
			SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
			SecretID  string `mapstructure:"secret_id" yaml:"secret_id"`
			Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
		} `mapstructure:"aws" yaml:"aws"`
	} `mapstructure:"secrets" yaml:"secrets"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "https://localhost:9200")
	v.SetDefault("backend.timeout", core.HTTPClientTimeout)
	v.SetDefault("backend.insecure_skip_verify", false)
	v.SetDefault("backend.auth.mode", string(gateway.AuthNone))
	v.SetDefault("backend.auth.service", gateway.DefaultSigV4Service)
	v.SetDefault("backend.rate_limit.requests_per_second", 20)
	v.SetDefault("backend.rate_limit.burst", 10)
	v.SetDefault("backend.circuit_breaker.max_failures", 5)
	v.SetDefault("backend.circuit_breaker.timeout_seconds", 30)
	v.SetDefault("backend.circuit_breaker.max_half_open_requests", 1)

	v.SetDefault("refresh.interval", time.Minute)
	v.SetDefault("refresh.start", "now-24h")
	v.SetDefault("refresh.end", "now")
	v.SetDefault("refresh.page_size", core.PageSize)
	v.SetDefault("refresh.page_concurrency", service.DefaultPageConcurrency)

	rules := service.DefaultRulesStoreConfig()
	v.SetDefault("cache.rule_cache_size", rules.CacheSize)
	v.SetDefault("cache.rule_cache_ttl", rules.CacheTTL)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.prefix", "secanalytics:")

	v.SetDefault("api.port", 8081)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.tls", false)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limit.requests_per_second", 50)
	v.SetDefault("api.rate_limit.burst", 100)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("auth.jwt_expiry", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.vault.path", "secret/secanalytics")
	v.SetDefault("secrets.aws.secret_id", "secanalytics/secrets")
}

func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// keys without defaults are invisible to Unmarshal unless bound
	for _, key := range []string{
		"backend.auth.username",
		"backend.auth.password",
		"backend.auth.region",
		"backend.auth.access_key_id",
		"backend.auth.secret_access_key",
		"backend.auth.session_token",
		"auth.username",
		"auth.password",
		"auth.jwt_secret",
		"secrets.vault.address",
		"secrets.vault.token",
		"secrets.aws.region",
		"secrets.aws.access_key",
		"secrets.aws.secret_key",
		"secrets.aws.endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

// LoadConfig loads configuration from configFile, or from config.yaml in
// "." and "./config" when configFile is empty, then applies environment
// overrides, secrets and validation.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	loadFromEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}
	if err := validateAndHash(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

var weakSecrets = []string{
	"secret", "password", "changeme", "default", "admin",
	"jwt_secret", "supersecret", "mysecret", "test", "example",
}

// validateAndHash validates the config and replaces the API password with its bcrypt hash
func validateAndHash(config *Config) error {
	if config.Auth.Enabled {
		if len(config.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters (256 bits)")
		}
		lower := strings.ToLower(config.Auth.JWTSecret)
		for _, weak := range weakSecrets {
			if strings.Contains(lower, weak) {
				return fmt.Errorf("JWT secret appears to contain weak/default value: please use a cryptographically secure random string")
			}
		}
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if config.Auth.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(config.Auth.Password), config.Auth.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		config.Auth.HashedPassword = string(hashed)
		config.Auth.Password = ""
	}
	return nil
}

// validateConfig runs struct validation plus the cross-field checks tags cannot express
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	u, err := url.Parse(config.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.url must be an http(s) URL, got %q", config.Backend.URL)
	}

	switch gateway.AuthMode(config.Backend.Auth.Mode) {
	case gateway.AuthBasic:
		if config.Backend.Auth.Username == "" {
			return errors.New("backend.auth.username is required for basic auth")
		}
	case gateway.AuthSigV4:
		if config.Backend.Auth.Region == "" {
			return errors.New("backend.auth.region is required for sigv4 auth")
		}
	}

	if _, err := core.ParseTimeRange(config.Refresh.Start, config.Refresh.End, time.Now()); err != nil {
		return fmt.Errorf("refresh window: %w", err)
	}

	for i, ch := range config.Notifications.Channels {
		if !ch.Enabled {
			continue
		}
		if ch.Type != notify.ChannelWebhook && ch.Type != notify.ChannelSlack {
			return fmt.Errorf("notifications.channels[%d]: unsupported type %q", i, ch.Type)
		}
		if u, err := url.Parse(ch.WebhookURL); err != nil || u.Host == "" {
			return fmt.Errorf("notifications.channels[%d]: invalid webhook_url", i)
		}
	}
	return nil
}

// GatewayConfig converts the backend section into the gateway client config
func (c *Config) GatewayConfig() gateway.ClientConfig {
	b := c.Backend
	cb := core.DefaultCircuitBreakerConfig()
	cb.MaxFailures = uint32(b.CircuitBreaker.MaxFailures)
	cb.Timeout = time.Duration(b.CircuitBreaker.TimeoutSeconds) * time.Second
	cb.MaxHalfOpenRequests = uint32(b.CircuitBreaker.MaxHalfOpenRequests)

	return gateway.ClientConfig{
		BaseURL:            b.URL,
		Timeout:            b.Timeout,
		RequestsPerSecond:  b.RateLimit.RequestsPerSecond,
		Burst:              b.RateLimit.Burst,
		InsecureSkipVerify: b.InsecureSkipVerify,
		CircuitBreaker:     cb,
		Auth: gateway.AuthConfig{
			Mode:            gateway.AuthMode(b.Auth.Mode),
			Username:        b.Auth.Username,
			Password:        b.Auth.Password,
			Region:          b.Auth.Region,
			Service:         b.Auth.Service,
			AccessKeyID:     b.Auth.AccessKeyID,
			SecretAccessKey: b.Auth.SecretAccessKey,
			SessionToken:    b.Auth.SessionToken,
		},
	}
}

// RedisConfig returns the shared rule cache settings
func (c *Config) RedisConfig() core.RedisCacheConfig {
	r := c.Cache.Redis
	return core.RedisCacheConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
		Prefix:   r.Prefix,
	}
}

// RulesStoreConfig returns the local rule cache settings
func (c *Config) RulesStoreConfig() service.RulesStoreConfig {
	return service.RulesStoreConfig{
		CacheSize: c.Cache.RuleCacheSize,
		CacheTTL:  c.Cache.RuleCacheTTL,
	}
}
