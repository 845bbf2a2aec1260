package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":3000" {
		t.Errorf("expected :3000, got %s", cfg.Listen)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.OTP.TTL != time.Minute {
		t.Errorf("expected 1m OTP TTL, got %v", cfg.OTP.TTL)
	}
	if cfg.Server.RateLimit.Requests != 10000 {
		t.Errorf("expected 10000 requests per window, got %d", cfg.Server.RateLimit.Requests)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")

	content := `
listen: ":9090"
tenancy: multi
providers:
  - name: deepseek
    type: openai
    url: https://api.deepseek.com
    api_key: ${TEST_API_KEY}
candidates:
  - provider: deepseek
    model: deepseek-chat
site_candidates:
  site_vip:
    - provider: deepseek
cache:
  ttl: 30m
knowledge:
  backend: sqlite
  db_path: test.db
server:
  cors_whitelist: ["https://a.example"]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.Providers[0].APIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Providers[0].APIKey)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", cfg.Cache.TTL)
	}
	if !cfg.MultiTenant() {
		t.Error("expected multi tenancy")
	}
	if vip := cfg.SiteCandidates["site_vip"]; len(vip) != 1 || vip[0].Provider != "deepseek" || vip[0].Model != "" {
		t.Errorf("unexpected site candidates: %v", cfg.SiteCandidates)
	}
	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("KB_ID", "KB123")
	t.Setenv("CORS_WHITELIST", "https://a.example, https://b.example,")
	t.Setenv("ALLOWED_EMBED_ORIGINS", "https://shop.example")
	t.Setenv("CACHE_TTL", "24h")
	t.Setenv("BEDROCK_MODEL_ARN", "arn:custom")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8081" {
		t.Errorf("expected :8081, got %s", cfg.Listen)
	}
	if cfg.AWS.Region != "eu-west-1" || cfg.AWS.KnowledgeBaseID != "KB123" {
		t.Errorf("unexpected aws config: %+v", cfg.AWS)
	}
	if len(cfg.Server.CORSWhitelist) != 2 || cfg.Server.CORSWhitelist[1] != "https://b.example" {
		t.Errorf("unexpected whitelist: %v", cfg.Server.CORSWhitelist)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %v", cfg.Cache.TTL)
	}

	cfg.Finalize()
	if cfg.Candidates[0].Model != "arn:custom" {
		t.Errorf("expected override candidate first, got %s", cfg.Candidates[0])
	}
	if len(cfg.Candidates) != len(DefaultCandidates)+1 {
		t.Errorf("override should precede the default chain, got %d candidates", len(cfg.Candidates))
	}
	if cfg.Providers[0].Region != "eu-west-1" || cfg.Providers[0].KnowledgeBaseID != "KB123" {
		t.Errorf("bedrock provider should inherit aws defaults: %+v", cfg.Providers[0])
	}
}

func TestApplyEnvBadTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("expected error for unparsable CACHE_TTL")
	}
}

func TestFinalizeDefaults(t *testing.T) {
	cfg := Default()
	cfg.Finalize()
	if len(cfg.Candidates) != len(DefaultCandidates) {
		t.Fatalf("expected %d default candidates, got %d", len(DefaultCandidates), len(cfg.Candidates))
	}
	if cfg.Providers[0].Type != ProviderBedrock {
		t.Errorf("expected implicit bedrock provider, got %+v", cfg.Providers[0])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Tenancy = TenancyMulti
	cfg.Providers = []ProviderConfig{{Name: "x", Type: "carrier-pigeon"}}
	cfg.Candidates = []models.ProviderCandidate{{Provider: "missing", Model: "m"}}
	cfg.Cache.TTL = 0
	cfg.SiteCandidates = map[string][]models.ProviderCandidate{"site_a": {{Provider: "nowhere"}}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"multi tenancy", "unknown type", "unknown provider", "cache.ttl", "site_candidates site_a"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tenancy != TenancySingle {
		t.Errorf("expected default tenancy, got %s", cfg.Tenancy)
	}
}
