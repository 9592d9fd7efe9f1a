package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the process-level configuration file looked up in the
// config directory.
const BootstrapFileName = "controller_config.yaml"

// BootstrapConfig holds the process settings loaded from controller_config.yaml.
type BootstrapConfig struct {
	Logging LoggingConfig         `yaml:"logging"`
	Server  BootstrapServerConfig `yaml:"server"`
	ZeroMQ  ZeroMQBootstrap       `yaml:"zeromq"`
	Data    DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds HTTP API settings. A zero port disables the API.
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds transport endpoints.
type ZeroMQBootstrap struct {
	// FeedbackConnectAddress is where the joint state publisher binds; the
	// controller connects a SUB socket to it.
	FeedbackConnectAddress string `yaml:"feedback_connect_address"`
	// PublishBindAddress is bound by the controller's PUB socket for pose and
	// joint commands.
	PublishBindAddress string `yaml:"publish_bind_address"`
	PollIntervalMs     int    `yaml:"poll_interval_ms"`
}

// DataConfig locates the control configuration and robot description.
type DataConfig struct {
	Directory             string `yaml:"directory"`
	ControlConfigFilename string `yaml:"control_config_file"`
	RobotDescriptionFile  string `yaml:"robot_description_file"`
}

// ControlConfigPath joins the data directory and the control config filename.
func (d DataConfig) ControlConfigPath() string {
	return resolve(d.Directory, d.ControlConfigFilename)
}

// RobotDescriptionPath joins the data directory and the URDF filename unless
// the latter is absolute.
func (d DataConfig) RobotDescriptionPath() string {
	return resolve(d.Directory, d.RobotDescriptionFile)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// LoadBootstrapConfig loads controller_config.yaml from configDir. ${VAR}
// references are expanded from the environment before parsing.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := readExpanded(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg := BootstrapConfig{
		Logging: LoggingConfig{Level: "info"},
		ZeroMQ:  ZeroMQBootstrap{PollIntervalMs: 100},
	}
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.ZeroMQ.FeedbackConnectAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.feedback_connect_address")
	}
	if bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.ControlConfigFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.control_config_file")
	}
	if bootstrapCfg.Data.RobotDescriptionFile == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.robot_description_file")
	}

	return &bootstrapCfg, nil
}

func readExpanded(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return envsubst.Bytes(raw)
}
