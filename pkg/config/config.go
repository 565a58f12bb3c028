package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envConfigPath  = "GUARDIAN_CONFIG"
	envLanguage    = "GUARDIAN_LANGUAGE"
	envRulesFile   = "GUARDIAN_RULES_FILE"
	envGatewayPort = "GUARDIAN_GATEWAY_PORT"
	envWebPort     = "GUARDIAN_WEB_PORT"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Admin     AdminConfig     `json:"admin"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
	// File mirrors log lines into a size-rotated file when set.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// AssistantConfig selects the rulebook and the simulated typing delay.
type AssistantConfig struct {
	Language         string `json:"language"`
	RulesFile        string `json:"rules_file,omitempty"`
	TypingDelayMinMS int    `json:"typing_delay_min_ms"`
	TypingDelayMaxMS int    `json:"typing_delay_max_ms"`
}

func (c AssistantConfig) TypingDelay() (time.Duration, time.Duration) {
	return time.Duration(c.TypingDelayMinMS) * time.Millisecond, time.Duration(c.TypingDelayMaxMS) * time.Millisecond
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Web WebConfig `json:"web"`
}

// WebConfig configures the HTTP chat channel.
type WebConfig struct {
	Enabled       bool   `json:"enabled"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	RatePerMinute int    `json:"rate_per_minute"`
	Burst         int    `json:"burst"`
}

// GatewayConfig configures the status and admin API bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AdminConfig controls the simulated bin telemetry refresh.
type AdminConfig struct {
	AutoRefresh    bool `json:"auto_refresh"`
	RefreshSeconds int  `json:"refresh_seconds"`
}

func (c AdminConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// Default returns the configuration used when no config.json exists.
func Default() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Language:         "en",
			TypingDelayMinMS: 1000,
			TypingDelayMaxMS: 2000,
		},
		Channels: ChannelsConfig{
			Web: WebConfig{
				Enabled:       true,
				Host:          "0.0.0.0",
				Port:          8080,
				RatePerMinute: 30,
				Burst:         5,
			},
		},
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 18790},
		Admin:   AdminConfig{AutoRefresh: true, RefreshSeconds: 5},
		Logging: LoggingConfig{Format: "text", Level: "info"},
	}
}

// LoadConfig loads .env, resolves config.json over the defaults and applies
// environment overrides. A missing config file is not an error unless
// GUARDIAN_CONFIG names it explicitly.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	a := c.Assistant
	if a.TypingDelayMinMS < 0 || a.TypingDelayMaxMS < 0 {
		errs = append(errs, errors.New("assistant typing delay must not be negative"))
	}
	if a.TypingDelayMaxMS < a.TypingDelayMinMS {
		errs = append(errs, fmt.Errorf("assistant.typing_delay_max_ms (%d) is below typing_delay_min_ms (%d)", a.TypingDelayMaxMS, a.TypingDelayMinMS))
	}
	if c.Channels.Web.Enabled && !validPort(c.Channels.Web.Port) {
		errs = append(errs, fmt.Errorf("channels.web.port %d out of range", c.Channels.Web.Port))
	}
	if c.Channels.Web.RatePerMinute < 0 || c.Channels.Web.Burst < 0 {
		errs = append(errs, errors.New("channels.web rate limits must not be negative"))
	}
	if !validPort(c.Gateway.Port) {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", c.Gateway.Port))
	}
	if c.Admin.RefreshSeconds < 0 {
		errs = append(errs, errors.New("admin.refresh_seconds must not be negative"))
	}

	return errors.Join(errs...)
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if value := strings.TrimSpace(os.Getenv(envLanguage)); value != "" {
		cfg.Assistant.Language = value
	}
	if value := strings.TrimSpace(os.Getenv(envRulesFile)); value != "" {
		cfg.Assistant.RulesFile = value
	}

	if value := strings.TrimSpace(os.Getenv(envGatewayPort)); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", envGatewayPort, err)
		}
		cfg.Gateway.Port = port
	}
	if value := strings.TrimSpace(os.Getenv(envWebPort)); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", envWebPort, err)
		}
		cfg.Channels.Web.Port = port
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is GUARDIAN_CONFIG first, then cwd-local fallback paths. An
// empty result means no file was found.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
