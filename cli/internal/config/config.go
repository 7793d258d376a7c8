package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServiceURL = "http://localhost:5001"
	DefaultLogPath    = "indexer/out/transfers.jsonl"
)

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	Defaults       *Profile            `yaml:"defaults"`
	path           string
}

// Profile names one scoring deployment.
type Profile struct {
	ServiceURL string `yaml:"service_url"`
	LogPath    string `yaml:"log_path"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
		Defaults: &Profile{
			ServiceURL: DefaultServiceURL,
			LogPath:    DefaultLogPath,
		},
	}
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sguard", "config.yaml"), nil
}

// Load reads cfgFile, or ~/.sguard/config.yaml when empty. A missing file
// yields defaults. SGUARD_SERVICE_URL and SGUARD_LOG_PATH override the
// defaults section.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfgFile, err)
		}
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = Default().Defaults
	}
	if v := os.Getenv("SGUARD_SERVICE_URL"); v != "" {
		cfg.Defaults.ServiceURL = v
	}
	if v := os.Getenv("SGUARD_LOG_PATH"); v != "" {
		cfg.Defaults.LogPath = v
	}

	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

func (c *Config) SaveProfile(name, serviceURL, logPath string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}

	c.Profiles[name] = &Profile{
		ServiceURL: serviceURL,
		LogPath:    logPath,
	}

	c.CurrentProfile = name
	return c.Save()
}

// GetProfile returns the named profile, or the current one when name is
// empty. Unset fields fall back to the defaults section. The default profile
// need not be stored.
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	stored, ok := c.Profiles[name]
	if !ok {
		if name != "default" {
			return nil, fmt.Errorf("profile '%s' not found", name)
		}
		stored = &Profile{}
	}

	p := *stored
	if c.Defaults != nil {
		if p.ServiceURL == "" {
			p.ServiceURL = c.Defaults.ServiceURL
		}
		if p.LogPath == "" {
			p.LogPath = c.Defaults.LogPath
		}
	}
	return &p, nil
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.Save()
}
