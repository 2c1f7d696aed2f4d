package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Session  SessionConfig  `json:"session"`
	Morph    MorphConfig    `json:"morphology"`
	Segment  SegmentConfig  `json:"segmentation"`
	Inpaint  InpaintConfig  `json:"inpainting"`
	Describe DescribeConfig `json:"describe"`
}

// SessionConfig holds configuration for the session coordinator
type SessionConfig struct {
	DebounceMillis int    `json:"debounce_ms"`
	AutoApply      bool   `json:"auto_apply"`
	Strategy       string `json:"strategy"` // morphological or snap
}

// MorphConfig holds configuration for the morphological refiner
type MorphConfig struct {
	CloseIterations int `json:"close_iterations"`
	MaxGap          int `json:"max_gap"`
	MinRegionSize   int `json:"min_region_size"`
}

// SegmentConfig holds configuration for the segmentation snap adapter
type SegmentConfig struct {
	ServerURL     string  `json:"server_url"`
	InputSize     int     `json:"input_size"`
	ExpandMargin  int     `json:"expand_margin"`
	MaskThreshold float64 `json:"mask_threshold"`
	FuseThreshold float64 `json:"fuse_threshold"`
}

// InpaintConfig holds configuration for the inpainting client
type InpaintConfig struct {
	ServerURL string `json:"server_url"`
}

// DescribeConfig holds configuration for the optional object labeler
type DescribeConfig struct {
	Enabled   bool   `json:"enabled"`
	OllamaURL string `json:"ollama_url"`
	Model     string `json:"model"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			DebounceMillis: 600,
			AutoApply:      true,
			Strategy:       "snap",
		},
		Morph: MorphConfig{
			CloseIterations: 2,
			MaxGap:          40,
			MinRegionSize:   50,
		},
		Segment: SegmentConfig{
			ServerURL:     "http://localhost:8500",
			InputSize:     1024,
			ExpandMargin:  16,
			MaskThreshold: 0.5,
			FuseThreshold: 0.6,
		},
		Inpaint: InpaintConfig{
			ServerURL: "http://localhost:8600",
		},
		Describe: DescribeConfig{
			Enabled:   false,
			OllamaURL: "http://localhost:11434",
			Model:     "llava:13b",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Session.DebounceMillis < 0 {
		return fmt.Errorf("session.debounce_ms must not be negative")
	}

	if c.Session.Strategy != "morphological" && c.Session.Strategy != "snap" {
		return fmt.Errorf("session.strategy must be 'morphological' or 'snap'")
	}

	if c.Morph.CloseIterations < 0 {
		return fmt.Errorf("morphology.close_iterations must not be negative")
	}

	if c.Morph.MaxGap < 2 {
		return fmt.Errorf("morphology.max_gap must be at least 2")
	}

	if c.Morph.MinRegionSize < 1 {
		return fmt.Errorf("morphology.min_region_size must be positive")
	}

	if c.Segment.InputSize < 1 {
		return fmt.Errorf("segmentation.input_size must be positive")
	}

	if c.Segment.ExpandMargin < 0 {
		return fmt.Errorf("segmentation.expand_margin must not be negative")
	}

	if c.Segment.MaskThreshold < 0 || c.Segment.MaskThreshold > 1 {
		return fmt.Errorf("segmentation.mask_threshold must be between 0 and 1")
	}

	if c.Segment.FuseThreshold < 0 || c.Segment.FuseThreshold > 1 {
		return fmt.Errorf("segmentation.fuse_threshold must be between 0 and 1")
	}

	if c.Describe.Enabled && c.Describe.Model == "" {
		return fmt.Errorf("describe.model must be set when describe is enabled")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "object-eraser", "config.json")
}
