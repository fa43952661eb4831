package config

import (
	"fmt"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
)

// ClassifierConfig represents the configuration for the text classifier
type ClassifierConfig struct {
	Provider   string
	Enabled    bool
	Categories []string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// TrustConfig represents the configuration for domain trust lookups
type TrustConfig struct {
	Enabled      bool
	TLSTimeout   time.Duration
	TLSPort      int
	WhoisTimeout time.Duration
	WhoisRetries uint64
}

// CacheConfig represents the configuration for the domain age store
type CacheConfig struct {
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:   c.GetString("classifier.provider"),
		Enabled:    c.GetBool("classifier.enabled"),
		Categories: c.GetStringSlice("classifier.categories"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetHeaderWeights returns the blend weights used when authentication
// headers are present
func (c *Config) GetHeaderWeights() core.BlendWeights {
	return core.BlendWeights{
		URL:     c.GetFloat64("fusion.weights.headers.url"),
		Header:  c.GetFloat64("fusion.weights.headers.header"),
		Phrase:  c.GetFloat64("fusion.weights.headers.phrase"),
		Display: c.GetFloat64("fusion.weights.headers.display"),
		Content: c.GetFloat64("fusion.weights.headers.content"),
		Trust:   c.GetFloat64("fusion.weights.headers.trust"),
	}
}

// GetNoHeaderWeights returns the blend weights used when no authentication
// headers were supplied
func (c *Config) GetNoHeaderWeights() core.BlendWeights {
	return core.BlendWeights{
		URL:     c.GetFloat64("fusion.weights.no_headers.url"),
		Phrase:  c.GetFloat64("fusion.weights.no_headers.phrase"),
		Content: c.GetFloat64("fusion.weights.no_headers.content"),
		Trust:   c.GetFloat64("fusion.weights.no_headers.trust"),
	}
}

// GetTrust returns the trust lookup configuration
func (c *Config) GetTrust() (TrustConfig, error) {
	tlsTimeout, err := c.GetDuration("trust.tls_timeout")
	if err != nil {
		return TrustConfig{}, fmt.Errorf("invalid trust.tls_timeout: %w", err)
	}
	whoisTimeout, err := c.GetDuration("trust.whois_timeout")
	if err != nil {
		return TrustConfig{}, fmt.Errorf("invalid trust.whois_timeout: %w", err)
	}
	retries := c.GetInt("trust.whois_retries")
	if retries < 0 {
		retries = 0
	}

	return TrustConfig{
		Enabled:      c.GetBool("trust.enabled"),
		TLSTimeout:   tlsTimeout,
		TLSPort:      c.GetInt("trust.tls_port"),
		WhoisTimeout: whoisTimeout,
		WhoisRetries: uint64(retries),
	}, nil
}

// GetCache returns the domain age store configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	cleanupFreq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}

	return CacheConfig{
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}, nil
}
