package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
	"gopkg.in/yaml.v3"
)

// Tenancy modes.
const (
	TenancySingle = "single"
	TenancyMulti  = "multi"
)

// Provider types.
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
)

// Config holds all service configuration.
type Config struct {
	Listen          string                                `yaml:"listen"`
	Tenancy         string                                `yaml:"tenancy"`
	AWS             AWSConfig                             `yaml:"aws"`
	Providers       []ProviderConfig                      `yaml:"providers"`
	Candidates      []models.ProviderCandidate            `yaml:"candidates"`
	SiteCandidates  map[string][]models.ProviderCandidate `yaml:"site_candidates"`
	ProviderTimeout time.Duration                         `yaml:"provider_timeout"`
	Cache           CacheConfig                           `yaml:"cache"`
	Knowledge       KnowledgeConfig                       `yaml:"knowledge"`
	OTP             OTPConfig                             `yaml:"otp"`
	Payment         PaymentConfig                         `yaml:"payment"`
	Server          ServerConfig                          `yaml:"server"`
	Widget          WidgetConfig                          `yaml:"widget"`
	Log             LogConfig                             `yaml:"log"`
}

// AWSConfig holds defaults shared by bedrock providers.
type AWSConfig struct {
	Region          string `yaml:"region"`
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
}

// ProviderConfig defines an upstream model provider.
// Type is "bedrock", "openai" (any OpenAI-compatible API such as DeepSeek) or "gemini".
type ProviderConfig struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	URL             string `yaml:"url"`
	APIKey          string `yaml:"api_key"`
	Region          string `yaml:"region"`
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
}

// CacheConfig controls the answer cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	DBPath          string        `yaml:"db_path"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// KnowledgeConfig selects where per-site knowledge lives.
type KnowledgeConfig struct {
	Backend       string `yaml:"backend"`
	StaticText    string `yaml:"static_text"`
	DBPath        string `yaml:"db_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	SitePrefix    string `yaml:"site_prefix"`
}

// OTPConfig controls email verification codes.
type OTPConfig struct {
	TTL  time.Duration `yaml:"ttl"`
	From string        `yaml:"from"`
	SMTP SMTPConfig    `yaml:"smtp"`
}

// SMTPConfig is the outgoing mail server. An empty Host logs codes instead of sending.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PaymentConfig controls the NOWPayments IPN webhook.
type PaymentConfig struct {
	IPNSecret string `yaml:"ipn_secret"`
	DBPath    string `yaml:"db_path"`
}

// ServerConfig controls the HTTP surface and admission control.
type ServerConfig struct {
	AllowedEmbedOrigins []string        `yaml:"allowed_embed_origins"`
	CORSWhitelist       []string        `yaml:"cors_whitelist"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
	ClientIPHeaders     []string        `yaml:"client_ip_headers"`
	ReadTimeout         time.Duration   `yaml:"read_timeout"`
	WriteTimeout        time.Duration   `yaml:"write_timeout"`
	MaxBodyBytes        int64           `yaml:"max_body_bytes"`
}

// RateLimitConfig bounds requests per client address per window.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// WidgetConfig holds the public URLs baked into the loader and panel.
type WidgetConfig struct {
	PublicURL   string `yaml:"public_url"`
	Endpoint    string `yaml:"endpoint"`
	Placeholder string `yaml:"placeholder"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultCandidates mirrors the cheapest-first bedrock chain.
var DefaultCandidates = []models.ProviderCandidate{
	{Provider: "bedrock", Model: "arn:aws:bedrock:us-east-1::foundation-model/amazon.titan-text-lite-v1:0"},
	{Provider: "bedrock", Model: "arn:aws:bedrock:us-east-1::foundation-model/amazon.nova-lite-v1:0"},
	{Provider: "bedrock", Model: "arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-haiku-20240307-v1:0"},
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:  ":3000",
		Tenancy: TenancySingle,
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		ProviderTimeout: 30 * time.Second,
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             time.Hour,
			DBPath:          "secretary-cache.db",
			JanitorInterval: time.Minute,
		},
		Knowledge: KnowledgeConfig{
			Backend:       "static",
			DBPath:        "secretary.db",
			MongoDatabase: "ai_secretary",
			SitePrefix:    "site",
		},
		OTP: OTPConfig{
			TTL:  time.Minute,
			SMTP: SMTPConfig{Port: 587},
		},
		Payment: PaymentConfig{
			DBPath: "secretary.db",
		},
		Server: ServerConfig{
			RateLimit: RateLimitConfig{
				Requests: 10000,
				Window:   time.Minute,
			},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Widget: WidgetConfig{
			Placeholder: "send msg to AI support...",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, expands environment variables and applies
// the recognised environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default plus
// environment overrides otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// ApplyEnv overrides fields from the recognised environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("KB_ID"); v != "" {
		c.AWS.KnowledgeBaseID = v
	}
	if v := os.Getenv("ALLOWED_EMBED_ORIGINS"); v != "" {
		c.Server.AllowedEmbedOrigins = splitList(v)
	}
	if v := os.Getenv("CORS_WHITELIST"); v != "" {
		c.Server.CORSWhitelist = splitList(v)
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		c.Cache.TTL = ttl
	}
	if v := os.Getenv("BEDROCK_MODEL_ARN"); v != "" {
		provider := c.firstProviderOfType(ProviderBedrock)
		if provider == "" {
			provider = ProviderBedrock
		}
		if len(c.Candidates) == 0 {
			c.Candidates = append(c.Candidates, DefaultCandidates...)
		}
		c.Candidates = append([]models.ProviderCandidate{{Provider: provider, Model: v}}, c.Candidates...)
	}
	return nil
}

// Finalize fills derived defaults: an implicit bedrock provider and the
// default candidate chain when none are configured.
func (c *Config) Finalize() {
	if len(c.Providers) == 0 {
		c.Providers = []ProviderConfig{{Name: ProviderBedrock, Type: ProviderBedrock}}
	}
	if len(c.Candidates) == 0 {
		c.Candidates = append(c.Candidates, DefaultCandidates...)
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Type == "" {
			p.Type = ProviderOpenAI
		}
		if p.Type == ProviderBedrock {
			if p.Region == "" {
				p.Region = c.AWS.Region
			}
			if p.KnowledgeBaseID == "" {
				p.KnowledgeBaseID = c.AWS.KnowledgeBaseID
			}
		}
	}
}

// Validate reports configuration errors that would otherwise surface on the
// first request.
func (c *Config) Validate() error {
	var errs []error

	switch c.Tenancy {
	case TenancySingle, TenancyMulti:
	default:
		errs = append(errs, fmt.Errorf("tenancy %q: must be %q or %q", c.Tenancy, TenancySingle, TenancyMulti))
	}
	if c.Tenancy == TenancyMulti && c.Knowledge.Backend == "static" {
		errs = append(errs, errors.New("multi tenancy needs a sqlite or mongo knowledge backend"))
	}

	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		switch p.Type {
		case ProviderBedrock, ProviderOpenAI, ProviderGemini:
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type))
		}
		if names[p.Name] {
			errs = append(errs, fmt.Errorf("provider %q: duplicate name", p.Name))
		}
		names[p.Name] = true
	}
	for _, cand := range c.Candidates {
		if !names[cand.Provider] {
			errs = append(errs, fmt.Errorf("candidate %s: unknown provider", cand))
		}
		if cand.Model == "" {
			errs = append(errs, fmt.Errorf("candidate %s: model is required", cand))
		}
	}
	// Site chains may leave the model empty to inherit it from the default chain.
	for site, cands := range c.SiteCandidates {
		if len(cands) == 0 {
			errs = append(errs, fmt.Errorf("site_candidates %s: empty chain", site))
		}
		for _, cand := range cands {
			if !names[cand.Provider] {
				errs = append(errs, fmt.Errorf("site_candidates %s: candidate %s: unknown provider", site, cand))
			}
		}
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("otp.ttl must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("provider_timeout must be positive"))
	}
	if c.Server.RateLimit.Requests <= 0 || c.Server.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("server.rate_limit requests and window must be positive"))
	}
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q: must be memory or sqlite", c.Cache.Backend))
	}
	switch c.Knowledge.Backend {
	case "static", "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("knowledge.backend %q: must be static, sqlite or mongo", c.Knowledge.Backend))
	}
	if c.Knowledge.Backend == "mongo" && c.Knowledge.MongoURI == "" {
		errs = append(errs, errors.New("knowledge.mongo_uri is required for the mongo backend"))
	}

	return errors.Join(errs...)
}

// MultiTenant reports whether requests must carry a site identifier.
func (c *Config) MultiTenant() bool {
	return c.Tenancy == TenancyMulti
}

func (c *Config) firstProviderOfType(typ string) string {
	for _, p := range c.Providers {
		if p.Type == typ {
			return p.Name
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
