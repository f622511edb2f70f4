package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file"`
	DBPath    string          `yaml:"db_path"`
	JWTSecret string          `yaml:"jwt_secret"`
	DataRoot  string          `yaml:"data_root"`
	ReportDir string          `yaml:"report_dir"`
	Schedule  string          `yaml:"schedule"`
	Spaces    []string        `yaml:"spaces"`
	Nextcloud NextcloudConfig `yaml:"nextcloud"`
}

// NextcloudConfig holds the provider endpoints and credentials.
type NextcloudConfig struct {
	BaseURL   string `yaml:"base_url"`
	WebDAVURL string `yaml:"webdav_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DBPath == "" {
		c.DBPath = "/data/spacescan.db"
	}
	if c.DataRoot == "" {
		c.DataRoot = "/data/nextcloud"
	}
	// The report dir lives inside the provider mount, hidden from end users.
	if c.ReportDir == "" {
		c.ReportDir = "/.spacescan"
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the server
// can start without a mounted config file (useful for bare Docker runs).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
