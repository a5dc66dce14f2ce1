package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"valkey with addrs", DatabaseConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}}, ""},
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, "database.addrs is required"},
		{"postgres with dsn", DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/paperdex"}, ""},
		{"postgres without dsn", DatabaseConfig{Driver: DriverPostgres}, "database.dsn is required"},
		{"memory", DatabaseConfig{Driver: DriverMemory}, ""},
		{"unknown", DatabaseConfig{Driver: "sqlite"}, `got "sqlite"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 200

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Embedding.Dimensions != 1536 || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding defaults %+v", cfg.Embedding)
	}
	if cfg.Search.DefaultPageSize != 10 || cfg.Search.MaxPageSize != 100 ||
		cfg.Search.FallbackMaxResults != 50 || cfg.Search.FallbackTimeoutSec != 45 {
		t.Errorf("unexpected search defaults %+v", cfg.Search)
	}
	if len(cfg.Crawl.Categories) != len(DefaultCrawlCategories) || cfg.Crawl.MaxResults != 100 {
		t.Errorf("unexpected crawl defaults %+v", cfg.Crawl)
	}
	if cfg.Arxiv.TimeoutSec != 30 || cfg.Arxiv.Burst != 1 {
		t.Errorf("unexpected arxiv defaults %+v", cfg.Arxiv)
	}
	if cfg.Storage.KeyPrefix != "paperdex:" {
		t.Errorf("expected KeyPrefix='paperdex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Embedding.Enabled() {
		t.Error("embedding without api key must be disabled")
	}

	cfg.Crawl.Categories[0] = "mutated"
	if DefaultCrawlCategories[0] != "cs.AI" {
		t.Error("defaults must be copied, not aliased")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 5},
		Database: DatabaseConfig{Driver: DriverPostgres, ReadinessTimeout: 15},
		Search:   SearchConfig{DefaultPageSize: 25, MaxPageSize: 50},
		Crawl:    CrawlConfig{Categories: []string{"hep-th"}},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 5 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("driver overridden: %q", cfg.Database.Driver)
	}
	if cfg.Search.DefaultPageSize != 25 || cfg.Search.MaxPageSize != 50 {
		t.Errorf("search overridden: %+v", cfg.Search)
	}
	if len(cfg.Crawl.Categories) != 1 || cfg.Crawl.Categories[0] != "hep-th" {
		t.Errorf("categories overridden: %v", cfg.Crawl.Categories)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("PAPERDEX_TEST_KEY", "sk-test")
	t.Setenv("PAPERDEX_TEST_PORT", "")

	cfg, err := Parse([]byte(`
http:
  port: ${PAPERDEX_TEST_PORT:-9090}
database:
  driver: memory
embedding:
  api_key: ${PAPERDEX_TEST_KEY}
  dimensions: 8
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-test" || !cfg.Embedding.Enabled() {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Dimensions != 8 {
		t.Errorf("dimensions = %d", cfg.Embedding.Dimensions)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\ndatabase:\n  driver: redis\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("load local config: %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("local config should set a port")
	}
}
