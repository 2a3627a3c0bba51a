// Package config loads the client configuration stored at
// ~/.basket/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the directory under the user's home for client state.
const DefaultConfigDir = ".basket"

// DefaultConfigFile is the config file name within the config directory.
const DefaultConfigFile = "config.yaml"

// Identity is what the client presents to the server when signing in.
type Identity struct {
	Email  string `yaml:"email"`
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

type AI struct {
	BaseURL    string   `yaml:"base_url,omitempty"`
	APIKeyEnv  string   `yaml:"api_key_env"`
	Models     []string `yaml:"models"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (a AI) APIKey() string {
	if a.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(a.APIKeyEnv))
}

// Config represents the contents of ~/.basket/config.yaml.
type Config struct {
	Server   string   `yaml:"server"`
	Identity Identity `yaml:"identity"`
	DBPath   string   `yaml:"db_path"`
	LogLevel string   `yaml:"log_level"`
	Language string   `yaml:"language"`
	AI       AI       `yaml:"ai"`
}

// Dir returns the config directory. BASKET_HOME overrides the default.
func Dir() (string, error) {
	if dir := os.Getenv("BASKET_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

func Default() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Server:   "http://localhost:8080",
		DBPath:   filepath.Join(dir, "basket.db"),
		LogLevel: "warn",
		Language: "en",
		AI: AI{
			APIKeyEnv:  "OPENAI_API_KEY",
			Models:     []string{"gpt-4o-mini", "gpt-4o"},
			MaxRetries: 3,
		},
	}, nil
}

// Load reads the config from path, or from Path() when path is empty.
// Returns the default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Fields missing from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()

	if strings.HasPrefix(cfg.DBPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determining home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}
	return cfg, nil
}

// applyEnv lets BASKET_SERVER and BASKET_LOG_LEVEL override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BASKET_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("BASKET_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks what a sync session needs.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Server) == "" {
		problems = append(problems, "server is required")
	}
	if !strings.Contains(c.Identity.Email, "@") {
		problems = append(problems, "identity.email is required")
	}
	if c.Identity.Secret == "" {
		problems = append(problems, "identity.secret is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Save writes cfg to path, or to Path() when path is empty. The file holds
// the identity secret, so it is only readable by the owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}
