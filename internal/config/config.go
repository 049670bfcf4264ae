package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/wirecast/internal/frame"
)

// Defaults matching the stock sender/receiver deployment: a Raspberry Pi in
// USB gadget mode streaming its screen to a PC over a high-baud serial link.
const (
	DefaultPort        = "/dev/ttyGS0"
	DefaultBaudRate    = 3000000
	DefaultTargetFPS   = 15
	DefaultQuality     = 60
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultReadTimeout = time.Second
	DefaultServerPort  = 8080
)

// Config holds all runtime configuration for both the sender and receiver.
type Config struct {
	// Port is the serial device path (e.g. /dev/ttyGS0 on the sender side,
	// /dev/ttyACM0 on the receiver side).
	Port     string `json:"port" yaml:"port"`
	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`

	// Sender knobs.
	TargetFPS int `json:"target_fps" yaml:"target_fps"`
	Quality   int `json:"quality" yaml:"quality"`
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`

	// Receiver knobs.
	ReadTimeout   time.Duration `json:"read_timeout" yaml:"read_timeout"`
	MaxFrameBytes uint32        `json:"max_frame_bytes" yaml:"max_frame_bytes"`
	ServerPort    int           `json:"server_port" yaml:"server_port"`
	ScreenshotDir string        `json:"screenshot_dir" yaml:"screenshot_dir"`

	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Manager handles configuration loading, defaults, and persistence
type Manager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
}

// NewManager creates a configuration manager. If configFile is empty the
// default path under the user config dir is used; a missing file is not an
// error, defaults apply.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "wirecast", "config.yaml")
	}

	m := &Manager{
		config:     getDefaults(),
		configPath: path,
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	if err := m.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return m, nil
}

func getDefaults() *Config {
	return &Config{
		Port:          DefaultPort,
		BaudRate:      DefaultBaudRate,
		TargetFPS:     DefaultTargetFPS,
		Quality:       DefaultQuality,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		ReadTimeout:   DefaultReadTimeout,
		MaxFrameBytes: frame.DefaultMaxFrameSize,
		ServerPort:    DefaultServerPort,
		ScreenshotDir: ".",
		LogLevel:      "info",
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, m.config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Update replaces the current configuration after validating it
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cfg
	m.config = &c
	return nil
}

// Save writes the current configuration to the config file
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the path of the backing config file
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// Validate checks the configuration for values the pipelines cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
	}
	if c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %d", c.TargetFPS)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be in [1,100], got %d", c.Quality)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.MaxFrameBytes == 0 {
		return fmt.Errorf("max_frame_bytes must be positive")
	}
	return nil
}
