package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mikey/phish-fusion/internal/whitelist"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phish-fusion/")
	v.AddConfigPath("$HOME/.phish-fusion")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_FUSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a new configuration instance from an explicit file
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_FUSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Classifier defaults
	v.SetDefault("classifier.provider", "openai")
	v.SetDefault("classifier.enabled", true)
	v.SetDefault("classifier.categories", []string{
		"Financial Fraud", "Lottery Scam", "Malware", "Phishing", "Promotional",
	})

	// Fusion weights with authentication headers present
	v.SetDefault("fusion.weights.headers.url", 0.15)
	v.SetDefault("fusion.weights.headers.header", 0.35)
	v.SetDefault("fusion.weights.headers.phrase", 0.15)
	v.SetDefault("fusion.weights.headers.display", 0.10)
	v.SetDefault("fusion.weights.headers.content", 0.0)
	v.SetDefault("fusion.weights.headers.trust", 0.05)

	// Fusion weights without authentication headers
	v.SetDefault("fusion.weights.no_headers.url", 0.15)
	v.SetDefault("fusion.weights.no_headers.phrase", 0.10)
	v.SetDefault("fusion.weights.no_headers.content", 0.05)
	v.SetDefault("fusion.weights.no_headers.trust", 0.05)

	// Trust defaults
	v.SetDefault("trust.enabled", true)
	v.SetDefault("trust.tls_timeout", "4s")
	v.SetDefault("trust.tls_port", 443)
	v.SetDefault("trust.whois_timeout", "8s")
	v.SetDefault("trust.whois_retries", 2)

	// Server defaults
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_spam", false)
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.subject_prefix", "[**SPAM**] ")
	v.SetDefault("server.scan_timeout", "30s")
	v.SetDefault("server.headers.spam", "X-Spam-Status")
	v.SetDefault("server.headers.score", "X-Spam-Score")
	v.SetDefault("server.headers.category", "X-Spam-Category")
	v.SetDefault("server.headers.reason", "X-Spam-Reason")
	v.SetDefault("server.headers.id", "X-Spam-ID")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "127.0.0.1")
	v.SetDefault("server.postfix.port", 10026)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Spam defaults
	v.SetDefault("spam.whitelisted_domains", whitelist.DefaultDomains)

	// Classifier input normalisation
	v.SetDefault("normalizer.stem", true)
	v.SetDefault("normalizer.extra_stop_words", []string{})

	// Domain age cache defaults. A zero ttl keeps entries for the life of
	// the store.
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/domain_age.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/phish_fusion")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
