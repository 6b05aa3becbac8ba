package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// defaultDirectories is the directory layout created under the service
// home during initialization.
var defaultDirectories = []string{
	"reports",
	"logs",
	"data",
}

// InitResult reports what Initialize created.
type InitResult struct {
	HomeDir     string   `json:"home_dir"`
	ConfigPath  string   `json:"config_path"`
	CreatedDirs []string `json:"created_dirs,omitempty"`

	// ConfigExisted is true when an existing config file was left alone.
	ConfigExisted bool `json:"config_existed"`
}

// Initialize creates the service home directory layout and writes the
// default config file. It is idempotent: existing directories are kept
// and an existing config file is never overwritten unless force is set.
func Initialize(homeDir string, force bool) (*InitResult, error) {
	if homeDir == "" {
		homeDir = getDefaultHomeDir()
	}

	result := &InitResult{HomeDir: homeDir}
	for _, dir := range append([]string{""}, defaultDirectories...) {
		fullPath := filepath.Join(homeDir, dir)
		if _, err := os.Stat(fullPath); err == nil {
			continue
		}
		if err := os.MkdirAll(fullPath, 0o755); err != nil {
			return nil, types.WrapError(types.INIT_DIRS_FAILED,
				fmt.Sprintf("failed to create directory %s", fullPath), err)
		}
		result.CreatedDirs = append(result.CreatedDirs, fullPath)
	}

	configPath := filepath.Join(homeDir, "config.yaml")
	result.ConfigPath = configPath
	if _, err := os.Stat(configPath); err == nil && !force {
		result.ConfigExisted = true
		return result, nil
	}

	cfg := DefaultConfig()
	cfg.Core.HomeDir = homeDir
	cfg.Core.ReportDir = filepath.Join(homeDir, "reports")
	if err := WriteFile(configPath, cfg); err != nil {
		return nil, err
	}
	return result, nil
}

// WriteFile marshals cfg to YAML and writes it to path.
func WriteFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return types.WrapError(types.INIT_CONFIG_FAILED,
			"failed to marshal config to YAML", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.WrapError(types.INIT_CONFIG_FAILED,
			fmt.Sprintf("failed to write config file %s", path), err)
	}
	return nil
}
