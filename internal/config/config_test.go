package config

import (
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8081},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Provider: ProviderConfig{
			APIKey:            "test-key",
			FastModel:         "gpt-fast",
			HighFidelityModel: "gpt-thinking",
		},
		Embedding: EmbeddingConfig{Model: "voyage-3.5"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.HighFidelityModel = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing high fidelity model")
	}
}

func TestValidate_RateLimits(t *testing.T) {
	tests := []struct {
		name    string
		rate    Rate
		wantErr bool
	}{
		{"valid", Rate{Limit: 60, WindowSec: 60}, false},
		{"zero limit", Rate{Limit: 0, WindowSec: 60}, true},
		{"zero window", Rate{Limit: 60, WindowSec: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.RateLimits = map[string]Rate{"/api/search/semantic": tt.rate}

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Embedding.Dimensions != 1024 {
		t.Errorf("expected default dimensions 1024, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Collection.Name != "posts" {
		t.Errorf("expected default collection name, got %q", cfg.Collection.Name)
	}
	if cfg.Moderation.EscalationThreshold != 4.0 {
		t.Errorf("expected default escalation threshold 4.0, got %g", cfg.Moderation.EscalationThreshold)
	}
	if cfg.Blocklist.Table != "blocked_content_hashes" {
		t.Errorf("expected default blocklist table, got %q", cfg.Blocklist.Table)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CONTENTIQ_TEST_KEY", "secret")

	out := string(expandEnvVars([]byte("api_key: ${CONTENTIQ_TEST_KEY}\nmodel: ${CONTENTIQ_UNSET:-fallback}\n")))
	want := "api_key: secret\nmodel: fallback\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestIsProduction(t *testing.T) {
	if !IsProduction("prod") {
		t.Error("prod must be production")
	}
	if IsProduction("local") || IsProduction("dev") {
		t.Error("local/dev must not be production")
	}
}
