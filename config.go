package legacyipc

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultListenAddr is the loopback address the legacy peer connects to.
const DefaultListenAddr = "127.0.0.1:45357"

// Config is built once at startup and passed to every component that needs it.
type Config struct {
	Listen       string        `yaml:"listen"`
	ByteOrder    string        `yaml:"byte_order"`
	MaxFrameSize int           `yaml:"max_frame_size"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	Log        LogConfig        `yaml:"log"`
	Calculator CalculatorConfig `yaml:"calculator"`
	Update     UpdateConfig     `yaml:"update"`
}

// LogConfig selects the log level (debug, info, warn, error) and format (text, json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CalculatorConfig describes the external engine process.
type CalculatorConfig struct {
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// UpdateConfig controls the startup release check. It is off by default;
// enabling it requires URL.
type UpdateConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListenAddr,
		ByteOrder:    ByteOrderNative,
		MaxFrameSize: defaultMaxFrameSize,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Calculator: CalculatorConfig{
			Timeout: 30 * time.Second,
		},
		Update: UpdateConfig{
			UserAgent: "legacyipc",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the
// result. An empty path returns the validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config")
		}
		defer f.Close()

		if err = yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	if _, err := c.TCPAddr(); err != nil {
		return err
	}
	if _, err := c.FrameByteOrder(); err != nil {
		return err
	}
	if c.MaxFrameSize < 0 {
		return errors.Errorf("max_frame_size must not be negative, got %d", c.MaxFrameSize)
	}
	if c.Update.Enabled && c.Update.URL == "" {
		return errors.New("update.url is required when update.enabled is set")
	}
	return nil
}

// TCPAddr resolves the listen address. Only loopback addresses are accepted.
func (c *Config) TCPAddr() (*net.TCPAddr, error) {
	addr, err := net.ResolveTCPAddr("tcp", c.Listen)
	if err != nil {
		return nil, errors.Wrapf(err, "listen address %q", c.Listen)
	}
	if addr.IP == nil || !addr.IP.IsLoopback() {
		return nil, errors.Wrapf(ErrNonLoopbackAddr, "%q", c.Listen)
	}
	return addr, nil
}

// FrameByteOrder resolves the configured length prefix byte order.
func (c *Config) FrameByteOrder() (binary.ByteOrder, error) {
	return ParseByteOrder(c.ByteOrder)
}
