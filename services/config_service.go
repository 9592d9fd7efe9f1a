package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/open-teleop/invkin/pkg/config"
	customlog "github.com/open-teleop/invkin/pkg/log"
)

// ControlConfigService gives read-only access to the control configuration the
// controller was started with.
type ControlConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.ControlConfig
	GetCurrentConfigYAML() ([]byte, error)
	Path() string
}

// controlConfigService implements the ControlConfigService interface.
type controlConfigService struct {
	path          string
	logger        customlog.Logger
	currentConfig *config.ControlConfig
	mu            sync.RWMutex
}

// NewControlConfigService loads the control configuration at path. An empty
// path means the built-in defaults.
func NewControlConfigService(path string, logger customlog.Logger) (ControlConfigService, error) {
	s := &controlConfigService{
		path:   path,
		logger: logger,
	}
	if err := s.LoadConfig(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadConfig reads the configuration file over the defaults and validates it.
// On failure the previously loaded configuration is kept.
func (s *controlConfigService) LoadConfig() error {
	if s.path == "" {
		cfg := config.DefaultControlConfig()
		s.mu.Lock()
		s.currentConfig = cfg
		s.mu.Unlock()
		s.logger.Infof("No control configuration file, using defaults")
		return nil
	}

	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("control configuration file '%s': %w", s.path, err)
	}

	s.logger.Infof("Loading control configuration from: %s", s.path)
	cfg, err := config.LoadControlConfig(s.path)
	if err != nil {
		s.logger.Errorf("Error loading control config '%s': %v", s.path, err)
		return err
	}

	s.mu.Lock()
	s.currentConfig = cfg
	s.mu.Unlock()

	s.logger.Infof("Loaded control configuration for robot %s, version %s", cfg.RobotID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the loaded configuration. Callers must not modify it.
func (s *controlConfigService) GetCurrentConfig() *config.ControlConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML renders the effective configuration, defaults included.
func (s *controlConfigService) GetCurrentConfigYAML() ([]byte, error) {
	cfg := s.GetCurrentConfig()
	if cfg == nil {
		return nil, nil
	}
	return cfg.YAML()
}

func (s *controlConfigService) Path() string {
	return s.path
}
