package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	require.NotNil(t, cfg.Defaults)
	assert.Equal(t, "http://localhost:5001", cfg.Defaults.ServiceURL)
	assert.Equal(t, "indexer/out/transfers.jsonl", cfg.Defaults.LogPath)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, DefaultServiceURL, cfg.Defaults.ServiceURL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `current_profile: staging
profiles:
  staging:
    service_url: https://scoring.staging.example.com
    log_path: /var/lib/scalperguard/transfers.jsonl
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "staging")
	assert.Equal(t, "https://scoring.staging.example.com", cfg.Profiles["staging"].ServiceURL)
	assert.Equal(t, "/var/lib/scalperguard/transfers.jsonl", cfg.Profiles["staging"].LogPath)
	// Defaults survive a file without a defaults section.
	assert.Equal(t, DefaultServiceURL, cfg.Defaults.ServiceURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("profiles: [unclosed"), 0600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_WithEnvironmentOverrides(t *testing.T) {
	t.Setenv("SGUARD_SERVICE_URL", "http://env-scoring:9000")
	t.Setenv("SGUARD_LOG_PATH", "/tmp/env.jsonl")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://env-scoring:9000", cfg.Defaults.ServiceURL)
	assert.Equal(t, "/tmp/env.jsonl", cfg.Defaults.LogPath)
}

func TestSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".sguard", "config.yaml")

	cfg := Default()
	cfg.path = configPath
	cfg.CurrentProfile = "test-profile"

	require.NoError(t, cfg.Save())
	assert.FileExists(t, configPath)

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "test-profile", loaded.CurrentProfile)
}

func TestProfiles(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, cfg.SaveProfile("prod", "https://scoring.example.com", ""))
	assert.Equal(t, "prod", cfg.CurrentProfile)

	tests := []struct {
		name        string
		profile     string
		wantURL     string
		wantLogPath string
		wantErr     bool
	}{
		{name: "current profile", profile: "", wantURL: "https://scoring.example.com", wantLogPath: DefaultLogPath},
		{name: "named profile", profile: "prod", wantURL: "https://scoring.example.com", wantLogPath: DefaultLogPath},
		{name: "implicit default", profile: "default", wantURL: DefaultServiceURL, wantLogPath: DefaultLogPath},
		{name: "unknown", profile: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.GetProfile(tt.profile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, p.ServiceURL)
			assert.Equal(t, tt.wantLogPath, p.LogPath)
		})
	}

	require.NoError(t, cfg.RemoveProfile("prod"))
	assert.Empty(t, cfg.CurrentProfile)
	assert.NotContains(t, cfg.Profiles, "prod")
	assert.Error(t, cfg.RemoveProfile("prod"))
}
