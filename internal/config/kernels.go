package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/dyno.tune/internal/smooth"
)

// DefaultKernelConfigPath is the path to the canonical kernel defaults
// file. Values in it are merged over the built-in registry defaults at
// startup; the file is optional and partial.
const DefaultKernelConfigPath = "config/kernels.defaults.json"

// KernelConfig overrides smoothing-kernel default parameters. The
// outer key is a registry kernel id, the inner map holds parameter
// name to value. Omitted kernels and parameters keep their built-in
// defaults, so partial configs are safe.
type KernelConfig struct {
	Defaults map[string]map[string]float64 `json:"defaults"`
}

// LoadKernelConfig loads a KernelConfig from a JSON file. The file is
// validated to have a .json extension and to be under the max file
// size before parsing.
func LoadKernelConfig(path string) (*KernelConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg KernelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return &cfg, nil
}

// Apply merges the configured overrides into the registry. An override
// naming an unregistered kernel id is a configuration error and fails
// rather than being silently skipped.
func (c *KernelConfig) Apply(reg *smooth.Registry) error {
	if c == nil || len(c.Defaults) == 0 {
		return nil
	}
	for id, overrides := range c.Defaults {
		if err := reg.MergeDefaults(id, overrides); err != nil {
			return fmt.Errorf("apply kernel config: %w", err)
		}
	}
	return nil
}
