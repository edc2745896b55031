package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/monokrome/foiacquire-sub003/internal/config"
)

func TestWithDefault(t *testing.T) {
	testURLs := []url.URL{
		{Scheme: "https", Host: "example.org"},
	}

	cfg := config.WithDefault(testURLs)

	if cfg == nil {
		t.Fatal("WithDefault() returned nil")
	}

	builtCfg, err := cfg.Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}

	if len(builtCfg.SeedURLs()) != 1 {
		t.Errorf("expected 1 seed URL, got %d", len(builtCfg.SeedURLs()))
	}

	if builtCfg.BaseDelay() != time.Second {
		t.Errorf("expected BaseDelay 1s, got %v", builtCfg.BaseDelay())
	}
	if builtCfg.MinDelay() != 250*time.Millisecond {
		t.Errorf("expected MinDelay 250ms, got %v", builtCfg.MinDelay())
	}
	if builtCfg.MaxDelay() != 30*time.Second {
		t.Errorf("expected MaxDelay 30s, got %v", builtCfg.MaxDelay())
	}
	if builtCfg.BackoffMultiplier() != 2.0 {
		t.Errorf("expected BackoffMultiplier 2.0, got %f", builtCfg.BackoffMultiplier())
	}
	if builtCfg.RecoveryMultiplier() != 0.5 {
		t.Errorf("expected RecoveryMultiplier 0.5, got %f", builtCfg.RecoveryMultiplier())
	}
	if builtCfg.RecoveryThreshold() != 3 {
		t.Errorf("expected RecoveryThreshold 3, got %d", builtCfg.RecoveryThreshold())
	}
	if builtCfg.RequestTimeout() != 15*time.Second {
		t.Errorf("expected RequestTimeout 15s, got %v", builtCfg.RequestTimeout())
	}
	if builtCfg.UserAgent() != "foiacquire/1.0" {
		t.Errorf("expected UserAgent 'foiacquire/1.0', got '%s'", builtCfg.UserAgent())
	}
	if builtCfg.PrivacyMode() != config.PrivacyDirect {
		t.Errorf("expected PrivacyMode direct, got '%s'", builtCfg.PrivacyMode())
	}
	if builtCfg.ViaMode() != config.ViaFallback {
		t.Errorf("expected ViaMode fallback, got '%s'", builtCfg.ViaMode())
	}
	if builtCfg.Workers() != 4 {
		t.Errorf("expected Workers 4, got %d", builtCfg.Workers())
	}
	if builtCfg.RefreshTTLDays() != 30 {
		t.Errorf("expected RefreshTTLDays 30, got %d", builtCfg.RefreshTTLDays())
	}
	if builtCfg.RetryMax() != 5 {
		t.Errorf("expected RetryMax 5, got %d", builtCfg.RetryMax())
	}
	if builtCfg.DryRun() != false {
		t.Errorf("expected DryRun false, got %v", builtCfg.DryRun())
	}
}

func TestWithDefault_EmptySeedUrls(t *testing.T) {
	cfg := config.WithDefault([]url.URL{})

	if cfg == nil {
		t.Fatal("WithDefault() returned nil")
	}

	_, err := cfg.Build()
	if err == nil {
		t.Errorf("should error")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig err, got %v", err)
	}
}

func TestBuild_MinDelayExceedsMaxDelay(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	_, err := config.WithDefault(baseURL).WithMinDelay(time.Minute).WithMaxDelay(time.Second).Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuild_BackoffMultiplierBelowOne(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	_, err := config.WithDefault(baseURL).WithBackoffMultiplier(0.5).Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuild_RecoveryMultiplierAboveOne(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	_, err := config.WithDefault(baseURL).WithRecoveryMultiplier(1.5).Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuild_ExternalProxyRequiresURL(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	_, err := config.WithDefault(baseURL).WithPrivacyMode(config.PrivacyExternalProxy, "").Build()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestWithSeedUrls(t *testing.T) {
	testURLs := []url.URL{
		{Scheme: "https", Host: "example.org"},
		{Scheme: "http", Host: "test.com", Path: "/path"},
	}

	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithSeedUrls(testURLs).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}

	if len(cfg.SeedURLs()) != 2 {
		t.Errorf("expected 2 seed URLs, got %d", len(cfg.SeedURLs()))
	}
	if cfg.SeedURLs()[0].String() != "https://example.org" {
		t.Errorf("expected first URL 'https://example.org', got '%s'", cfg.SeedURLs()[0].String())
	}
}

func TestWithBaseDelay(t *testing.T) {
	testDelay := 2 * time.Second
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithBaseDelay(testDelay).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.BaseDelay() != testDelay {
		t.Errorf("expected BaseDelay %v, got %v", testDelay, cfg.BaseDelay())
	}
}

func TestWithVia(t *testing.T) {
	mappings := map[string]string{"https://original.example/": "https://cache.example/proxy/"}
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithVia(mappings, config.ViaPriority).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.ViaMode() != config.ViaPriority {
		t.Errorf("expected ViaPriority, got %s", cfg.ViaMode())
	}
	if cfg.ViaMappings()["https://original.example/"] != "https://cache.example/proxy/" {
		t.Errorf("expected via mapping to round-trip, got %v", cfg.ViaMappings())
	}
}

func TestWithPrivacyMode(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithPrivacyMode(config.PrivacyExternalProxy, "socks5://127.0.0.1:9050").Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.PrivacyMode() != config.PrivacyExternalProxy {
		t.Errorf("expected PrivacyExternalProxy, got %s", cfg.PrivacyMode())
	}
	if cfg.ProxyURL() != "socks5://127.0.0.1:9050" {
		t.Errorf("expected proxy URL to round-trip, got %s", cfg.ProxyURL())
	}
}

func TestWithWorkers(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithWorkers(20).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.Workers() != 20 {
		t.Errorf("expected Workers 20, got %d", cfg.Workers())
	}
}

func TestWithUserAgent(t *testing.T) {
	testAgent := "impersonate"
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithUserAgent(testAgent).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.UserAgent() != testAgent {
		t.Errorf("expected UserAgent '%s', got '%s'", testAgent, cfg.UserAgent())
	}
}

func TestWithDryRun(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	cfg, err := config.WithDefault(baseURL).WithDryRun(true).Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if cfg.DryRun() != true {
		t.Errorf("expected DryRun true, got %v", cfg.DryRun())
	}
}

func TestBuild_ValueSemantics(t *testing.T) {
	baseURL := []url.URL{{Scheme: "https", Host: "base.org"}}
	original := config.WithDefault(baseURL)
	built, err := original.Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	newBuilt, err := original.Build()
	if err != nil {
		t.Errorf("should not have any error, got %v", err)
	}
	if newBuilt.SeedURLs()[0].String() != built.SeedURLs()[0].String() {
		t.Error("Build() did not return matching config")
	}
}

func TestWithConfigFile_FileDoesNotExist(t *testing.T) {
	_, err := config.WithConfigFile("/nonexistent/path/config.json")

	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got: %v", err)
	}
}

func TestWithConfigFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	err := os.WriteFile(configPath, []byte("{invalid json content}"), 0644)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err = config.WithConfigFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got: %v", err)
	}
}

func TestWithConfigFile_ValidCompleteConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	err := os.WriteFile(configPath, []byte(completeConfigJson()), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loadedConfig, err := config.WithConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error loading valid config: %v", err)
	}

	if len(loadedConfig.SeedURLs()) != 1 ||
		loadedConfig.SeedURLs()[0].String() != "https://my-foia-site.gov/reading-room" {
		t.Errorf("unexpected SeedURLs: %v", loadedConfig.SeedURLs())
	}
	if loadedConfig.Workers() != 20 {
		t.Errorf("expected Workers 20, got %d", loadedConfig.Workers())
	}
	if loadedConfig.UserAgent() != "TestBot/1.0" {
		t.Errorf("expected UserAgent 'TestBot/1.0', got '%s'", loadedConfig.UserAgent())
	}
	if !loadedConfig.DryRun() {
		t.Errorf("expected DryRun true, got %v", loadedConfig.DryRun())
	}
	if loadedConfig.BackoffMultiplier() != 2.5 {
		t.Errorf("expected BackoffMultiplier 2.5, got %f", loadedConfig.BackoffMultiplier())
	}
	if loadedConfig.RetryMax() != 8 {
		t.Errorf("expected RetryMax 8, got %d", loadedConfig.RetryMax())
	}
}

func TestWithConfigFile_PartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialData := `{
		"seedUrls": [{"Scheme": "https", "Host": "partial-example.com"}],
		"workers": 7,
		"userAgent": "PartialBot/1.0"
	}`

	err := os.WriteFile(configPath, []byte(partialData), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loadedConfig, err := config.WithConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error loading partial config: %v", err)
	}

	if loadedConfig.Workers() != 7 {
		t.Errorf("expected Workers 7, got %d", loadedConfig.Workers())
	}
	if loadedConfig.UserAgent() != "PartialBot/1.0" {
		t.Errorf("expected UserAgent 'PartialBot/1.0', got '%s'", loadedConfig.UserAgent())
	}
	// Verify default fields are preserved
	if loadedConfig.RetryMax() != 5 {
		t.Errorf("expected RetryMax to remain default 5, got %d", loadedConfig.RetryMax())
	}
}

func TestWithConfigFile_PartialConfigNoSeedUrl(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialData := `{
		"workers": 7,
		"userAgent": "PartialBot/1.0"
	}`

	err := os.WriteFile(configPath, []byte(partialData), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = config.WithConfigFile(configPath)
	if err == nil {
		t.Fatalf("should error")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig error, got: %v", err)
	}
}

func TestWithConfigFile_EmptyJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.json")

	err := os.WriteFile(configPath, []byte("{}"), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = config.WithConfigFile(configPath)
	if err == nil {
		t.Fatal("expected error for empty config without seedUrls, got nil")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

// Note: zero values in a JSON config file are skipped when the decoded
// DTO is applied, so they cannot override defaults.

func completeConfigJson() string {
	return `
	{
    "seedUrls": [
        {
            "Scheme": "https",
            "Host": "my-foia-site.gov",
            "Path": "/reading-room"
        }
    ],
    "workers": 20,
    "baseDelay": 2000000000,
    "minDelay": 500000000,
    "maxDelay": 60000000000,
    "backoffMultiplier": 2.5,
    "recoveryMultiplier": 0.6,
    "recoveryThreshold": 4,
    "requestTimeout": 30000000000,
    "retryMax": 8,
    "userAgent": "TestBot/1.0",
    "dryRun": true
}
	`
}
