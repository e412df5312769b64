package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// ErrInvalidConfig is returned by UpdateConfig for YAML that does not parse
// or does not validate
var ErrInvalidConfig = errors.New("invalid machine configuration")

// ConfigPublisher defines the interface for publishing configuration updates.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification() error
}

// ConfigListener is called with the new configuration after every update.
type ConfigListener func(cfg *config.Config) error

// MachineConfigService manages the machine configuration file.
type MachineConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
	SetListener(l ConfigListener)
}

type machineConfigService struct {
	configPath      string
	logger          customlog.Logger
	configPublisher ConfigPublisher
	listener        ConfigListener
	currentConfig   *config.Config
	mu              sync.RWMutex

	// applyMu orders whole updates, listener included
	applyMu sync.Mutex
}

// NewMachineConfigService creates a new MachineConfigService and loads the
// file at configPath. A failed initial load is logged and leaves the service
// without a configuration.
func NewMachineConfigService(configPath string, logger customlog.Logger) (MachineConfigService, error) {
	if configPath == "" {
		return nil, fmt.Errorf("machine configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	service := &machineConfigService{
		configPath: configPath,
		logger:     logger,
	}

	if err := service.LoadConfig(); err != nil {
		logger.Warnf("Initial load of machine config '%s' failed: %v. Service created, but config is nil.", configPath, err)
		return service, nil
	}

	logger.Infof("MachineConfigService initialized for path: %s", configPath)
	return service, nil
}

// LoadConfig reads and validates the config file and makes it current.
func (s *machineConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading machine configuration from: %s", s.configPath)
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.currentConfig = nil
		return err
	}
	if err := cfg.Validate(); err != nil {
		s.currentConfig = nil
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s.currentConfig = cfg
	s.logger.Infof("Loaded machine configuration ID: %s, Version: %s", cfg.ConfigID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the current configuration. Callers must treat it as
// read-only.
func (s *machineConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the raw contents of the config file.
func (s *machineConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.configPath
	s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading machine config file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies new YAML, then notifies the
// listener and publisher. Nothing is applied if validation or the write fails.
func (s *machineConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: invalid YAML format: %v", ErrInvalidConfig, err)
	}
	if err := newCfg.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		s.mu.Unlock()
		return err
	}

	oldCfgID := "N/A"
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	listener := s.listener
	publisher := s.configPublisher
	s.mu.Unlock()

	s.logger.Infof("Updated machine configuration. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	if listener != nil {
		if err := listener(newCfg); err != nil {
			return fmt.Errorf("configuration persisted but not applied: %w", err)
		}
	}

	if publisher != nil {
		go func() {
			if err := publisher.PublishConfigUpdatedNotification(); err != nil {
				s.logger.Warnf("Failed to publish config update notification: %v", err)
			}
		}()
	}

	return nil
}

// PersistConfig writes yamlData to the config file.
func (s *machineConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

func (s *machineConfigService) persistConfigUnlocked(yamlData []byte) error {
	if err := os.WriteFile(s.configPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing machine config file '%s': %v", s.configPath, err)
		return fmt.Errorf("error writing machine config file '%s': %w", s.configPath, err)
	}
	s.logger.Debugf("Persisted machine configuration to %s", s.configPath)
	return nil
}

// SetPublisher injects the ConfigPublisher after initialization.
func (s *machineConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}

// SetListener sets the function that applies each updated configuration.
func (s *machineConfigService) SetListener(l ConfigListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}
