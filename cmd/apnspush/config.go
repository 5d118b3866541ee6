package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YamlConfig mirrors the raw config file. Exactly one identity section must
// end up populated after env overrides.
type YamlConfig struct {
	Environment string `yaml:"environment"` // "production" (default) or "sandbox"
	Topic       string `yaml:"topic"`

	Token struct {
		KeyFile         string        `yaml:"key_file"`
		KeyID           string        `yaml:"key_id"`
		TeamID          string        `yaml:"team_id"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"token"`

	Certificate struct {
		P12File     string `yaml:"p12_file"`
		P12Password string `yaml:"p12_password"`
		PemFile     string `yaml:"pem_file"`
	} `yaml:"certificate"`
}

// Config is the final, validated configuration.
type Config struct {
	Sandbox bool
	Topic   string

	TokenKeyFile         string
	TokenKeyID           string
	TokenTeamID          string
	TokenRefreshInterval time.Duration

	CertP12File     string
	CertP12Password string
	CertPemFile     string
}

// LoadConfig reads the optional YAML file and applies environment overrides.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	var yamlCfg YamlConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
		}
		logger.Debug("Loaded config file", "path", path)
	}

	cfg := &Config{
		Sandbox:              yamlCfg.Environment == "sandbox",
		Topic:                yamlCfg.Topic,
		TokenKeyFile:         yamlCfg.Token.KeyFile,
		TokenKeyID:           yamlCfg.Token.KeyID,
		TokenTeamID:          yamlCfg.Token.TeamID,
		TokenRefreshInterval: yamlCfg.Token.RefreshInterval,
		CertP12File:          yamlCfg.Certificate.P12File,
		CertP12Password:      yamlCfg.Certificate.P12Password,
		CertPemFile:          yamlCfg.Certificate.PemFile,
	}
	return applyEnvOverrides(cfg, logger)
}

// applyEnvOverrides applies environment variables and final validation.
func applyEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	override := func(key string, dest *string) {
		if val := os.Getenv(key); val != "" {
			logger.Debug("Overriding config value", "key", key, "source", "env")
			*dest = val
		}
	}
	if val := os.Getenv("APNS_ENVIRONMENT"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_ENVIRONMENT", "source", "env")
		cfg.Sandbox = val == "sandbox"
	}
	override("APNS_TOPIC", &cfg.Topic)
	override("APNS_KEY_FILE", &cfg.TokenKeyFile)
	override("APNS_KEY_ID", &cfg.TokenKeyID)
	override("APNS_TEAM_ID", &cfg.TokenTeamID)
	override("APNS_P12_FILE", &cfg.CertP12File)
	override("APNS_P12_PASSWORD", &cfg.CertP12Password)
	override("APNS_PEM_FILE", &cfg.CertPemFile)

	tokenMode := cfg.TokenKeyFile != "" || cfg.TokenKeyID != "" || cfg.TokenTeamID != ""
	certMode := cfg.CertP12File != "" || cfg.CertPemFile != ""
	switch {
	case tokenMode && certMode:
		return nil, fmt.Errorf("configure either token or certificate identity, not both")
	case !tokenMode && !certMode:
		return nil, fmt.Errorf("no identity configured (set token.key_file or certificate.p12_file / APNS_* env vars)")
	case tokenMode && (cfg.TokenKeyFile == "" || cfg.TokenKeyID == "" || cfg.TokenTeamID == ""):
		return nil, fmt.Errorf("token identity requires key_file, key_id and team_id")
	}
	if tokenMode && cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required in token mode")
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
