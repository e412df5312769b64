package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the bootstrap file looked up in the config directory
const BootstrapFilename = "controller_config.yaml"

const (
	defaultLanes     = 2
	defaultQueueSize = 64
)

// BootstrapConfig holds the initial configuration loaded from controller_config.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig         `yaml:"logging"`
	Server     BootstrapServerConfig `yaml:"server"`
	ZeroMQ     ZeroMQBootstrap       `yaml:"zeromq"`
	Data       DataConfig            `yaml:"data"`
	Processing ProcessingConfig      `yaml:"processing"`
	Journal    JournalConfig         `yaml:"journal"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds bootstrap HTTP server settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds ZeroMQ settings from bootstrap
type ZeroMQBootstrap struct {
	RequestBindAddress string `yaml:"request_bind_address"`
	PublishBindAddress string `yaml:"publish_bind_address"`
}

// ProcessingConfig sizes the per-head command lanes
type ProcessingConfig struct {
	Lanes     int `yaml:"lanes"`
	QueueSize int `yaml:"queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory         string `yaml:"directory"`
	MachineConfigFile string `yaml:"machine_config_file"`
}

// JournalConfig enables the CBOR command journal when Path is set
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MachineConfigPath returns the full path of the machine configuration file
func (b *BootstrapConfig) MachineConfigPath() string {
	return filepath.Join(b.Data.Directory, b.Data.MachineConfigFile)
}

// LoadBootstrapConfig loads the bootstrap configuration from controller_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.ZeroMQ.RequestBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address")
	}
	if bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.MachineConfigFile == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.machine_config_file")
	}

	if bootstrapCfg.Processing.Lanes <= 0 {
		bootstrapCfg.Processing.Lanes = defaultLanes
	}
	if bootstrapCfg.Processing.QueueSize <= 0 {
		bootstrapCfg.Processing.QueueSize = defaultQueueSize
	}
	if bootstrapCfg.Server.HTTPPort == 0 {
		bootstrapCfg.Server.HTTPPort = 8080
	}

	return &bootstrapCfg, nil
}
