package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Defaults are declared here
// once, overridden first by an optional YAML file and then by
// environment variables, and validated before use.
type Config struct {
	// Server
	ServerPort int `yaml:"server_port"`

	// Stores
	TemplateStorePath string `yaml:"template_store"`
	InverterStorePath string `yaml:"inverter_store"`
	ProjectDir        string `yaml:"project_dir"`

	// Sizing
	NECFactor float64 `yaml:"nec_factor"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_directory"`
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any), and environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:        8080,
		TemplateStorePath: "./data/tracker_templates.json",
		InverterStorePath: "./data/inverters.json",
		ProjectDir:        "./projects",
		NECFactor:         1.56,
		LogLevel:          "info",
		LogDir:            "./logs",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ServerPort = getEnvInt("SERVER_PORT", cfg.ServerPort)
	cfg.TemplateStorePath = getEnv("TEMPLATE_STORE", cfg.TemplateStorePath)
	cfg.InverterStorePath = getEnv("INVERTER_STORE", cfg.InverterStorePath)
	cfg.ProjectDir = getEnv("PROJECT_DIR", cfg.ProjectDir)
	cfg.NECFactor = getEnvFloat("NEC_FACTOR", cfg.NECFactor)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDir = getEnv("LOG_DIRECTORY", cfg.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.NECFactor < 1.0 {
		return fmt.Errorf("invalid NEC_FACTOR: %.3f (must be at least 1.0)", c.NECFactor)
	}
	if c.TemplateStorePath == "" || c.InverterStorePath == "" {
		return fmt.Errorf("template and inverter store paths must be set")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
