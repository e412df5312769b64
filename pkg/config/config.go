package config

import (
	"fmt"
	"os"

	"github.com/openpnp-go/controller/pkg/geometry"
	"gopkg.in/yaml.v3"
)

// Config represents the machine configuration: which driver backend to run and
// the heads and head mountables it drives.
type Config struct {
	Version     string       `yaml:"version" json:"version"`
	ConfigID    string       `yaml:"config_id" json:"config_id"`
	LastUpdated string       `yaml:"lastUpdated" json:"lastUpdated"`
	MachineID   string       `yaml:"machine_id" json:"machine_id"`
	Units       string       `yaml:"units" json:"units"`
	Driver      DriverConfig `yaml:"driver" json:"driver"`
	Heads       []HeadConfig `yaml:"heads" json:"heads"`
}

// DriverConfig selects and configures the driver backend. ID is a free-text
// identifier handed to the backend; the reference backend stores it and
// nothing reads it.
type DriverConfig struct {
	Type             string `yaml:"type" json:"type"`
	ID               string `yaml:"id,omitempty" json:"id,omitempty"`
	SimulateEnable   bool   `yaml:"simulate_enable,omitempty" json:"simulate_enable,omitempty"`
	CommandTimeoutMs int    `yaml:"command_timeout_ms,omitempty" json:"command_timeout_ms,omitempty"`
}

// HeadConfig describes one head and the tools mounted on it
type HeadConfig struct {
	ID        string            `yaml:"id" json:"id"`
	Name      string            `yaml:"name" json:"name"`
	Nozzles   []MountableConfig `yaml:"nozzles,omitempty" json:"nozzles,omitempty"`
	Actuators []MountableConfig `yaml:"actuators,omitempty" json:"actuators,omitempty"`
	Cameras   []MountableConfig `yaml:"cameras,omitempty" json:"cameras,omitempty"`
}

// MountableConfig describes a tool fixed to a head at a constant offset
type MountableConfig struct {
	ID     string            `yaml:"id" json:"id"`
	Name   string            `yaml:"name" json:"name"`
	Offset geometry.Location `yaml:"offset" json:"offset"`
}

// LoadConfig loads the machine configuration from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// ParseConfig parses machine configuration YAML and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Driver.Type == "" {
		cfg.Driver.Type = "null"
	}
	return &cfg, nil
}

// Validate checks required fields, unit names and ID uniqueness.
func (c *Config) Validate() error {
	if c.ConfigID == "" || c.Version == "" || c.MachineID == "" {
		return fmt.Errorf("validation failed: missing required fields (ConfigID, Version, MachineID)")
	}
	if _, err := geometry.ParseLengthUnit(c.Units); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.Driver.CommandTimeoutMs < 0 {
		return fmt.Errorf("validation failed: driver.command_timeout_ms must not be negative")
	}

	seen := make(map[string]bool)
	for _, head := range c.Heads {
		if head.ID == "" {
			return fmt.Errorf("validation failed: head without id")
		}
		if seen[head.ID] {
			return fmt.Errorf("validation failed: duplicate id %q", head.ID)
		}
		seen[head.ID] = true

		for _, m := range head.mountables() {
			if m.ID == "" {
				return fmt.Errorf("validation failed: mountable without id on head %q", head.ID)
			}
			if seen[m.ID] {
				return fmt.Errorf("validation failed: duplicate id %q", m.ID)
			}
			seen[m.ID] = true
			if m.Offset.Unit != "" && !m.Offset.Unit.Valid() {
				return fmt.Errorf("validation failed: mountable %q has unknown unit %q", m.ID, m.Offset.Unit)
			}
		}
	}
	return nil
}

// DefaultUnit returns the configured default length unit, falling back to
// millimetres.
func (c *Config) DefaultUnit() geometry.LengthUnit {
	u, err := geometry.ParseLengthUnit(c.Units)
	if err != nil {
		return geometry.CanonicalUnit
	}
	return u
}

// GetHead returns the head with the given ID
func (c *Config) GetHead(id string) (HeadConfig, bool) {
	for _, head := range c.Heads {
		if head.ID == id {
			return head, true
		}
	}
	return HeadConfig{}, false
}

// GetMountable returns the mountable with the given ID and the head it is on
func (c *Config) GetMountable(id string) (MountableConfig, HeadConfig, bool) {
	for _, head := range c.Heads {
		for _, m := range head.mountables() {
			if m.ID == id {
				return m, head, true
			}
		}
	}
	return MountableConfig{}, HeadConfig{}, false
}

// MountableOffset returns the mountable's offset with the default unit applied
func (c *Config) MountableOffset(m MountableConfig) geometry.Location {
	offset := m.Offset
	if offset.Unit == "" {
		offset.Unit = c.DefaultUnit()
	}
	return offset
}

func (h HeadConfig) mountables() []MountableConfig {
	all := make([]MountableConfig, 0, len(h.Nozzles)+len(h.Actuators)+len(h.Cameras))
	all = append(all, h.Nozzles...)
	all = append(all, h.Actuators...)
	all = append(all, h.Cameras...)
	return all
}
