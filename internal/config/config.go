package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/park285/otheller-go/internal/obslog"
)

const (
	appDir  = "otheller"
	cfgFile = "otheller/config.yaml"
)

type Config struct {
	MoveService MoveService `yaml:"move-service"`
	Play        Play        `yaml:"play"`
	Spectator   Spectator   `yaml:"spectator"`
	Log         Log         `yaml:"log"`

	MessagesDir string `yaml:"messages-dir" env:"MESSAGES_DIR"`
	ExportDir   string `yaml:"export-dir" env:"BOARD_EXPORT_DIR"`
}

type MoveService struct {
	URL     string        `yaml:"url" env:"MOVE_SERVICE_URL" env-default:"http://127.0.0.1:5001"`
	Timeout time.Duration `yaml:"timeout" env:"MOVE_SERVICE_TIMEOUT" env-default:"30s"`
	Retry   int           `yaml:"retry" env:"MOVE_SERVICE_RETRY" env-default:"3"`
	// MaxConns caps pooled connections to the service host.
	MaxConns int `yaml:"max-conns" env:"MOVE_SERVICE_MAX_CONNS" env-default:"4"`
}

type Play struct {
	AutoStepInterval time.Duration `yaml:"auto-step-interval" env:"AUTO_STEP_INTERVAL" env-default:"1500ms"`
	MoveDelay        time.Duration `yaml:"move-delay" env:"AUTO_MOVE_DELAY" env-default:"1000ms"`
}

// Spectator mirrors session events to an external relay.
type Spectator struct {
	Mode       string `yaml:"mode" env:"SPECTATOR_MODE" env-default:"off"`
	RedisURL   string `yaml:"redis-url" env:"SPECTATOR_REDIS_URL"`
	Channel    string `yaml:"channel" env:"SPECTATOR_CHANNEL" env-default:"otheller:events"`
	WSURL      string `yaml:"ws-url" env:"SPECTATOR_WS_URL"`
	BoardImage bool   `yaml:"board-image" env:"SPECTATOR_BOARD_IMAGE" env-default:"false"`
	QueueSize  int    `yaml:"queue-size" env:"SPECTATOR_QUEUE_SIZE" env-default:"64"`
}

type Log struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format   string `yaml:"format" env:"LOG_FORMAT" env-default:"legacy"`
	Console  bool   `yaml:"console" env:"LOG_TO_CONSOLE" env-default:"true"`
	File     bool   `yaml:"file" env:"LOG_TO_FILE" env-default:"false"`
	FilePath string `yaml:"file-path" env:"LOG_FILE"`
	Caller   bool   `yaml:"caller" env:"LOG_CALLER" env-default:"false"`
}

func (l Log) Options() obslog.Options {
	return obslog.Options{
		Level:    l.Level,
		Format:   l.Format,
		Console:  l.Console,
		File:     l.File,
		FilePath: l.FilePath,
		Caller:   l.Caller,
	}
}

// TerminalLogOptions is Log.Options for when the UI owns the terminal:
// console output is off and the file sink is forced on.
func (c *Config) TerminalLogOptions() obslog.Options {
	opts := c.Log.Options()
	opts.Console = false
	opts.File = true
	if opts.FilePath == "" {
		opts.FilePath = filepath.Join(xdg.StateHome, appDir, "otheller.log")
	}
	return opts
}

// Load reads configuration. The YAML file is path, else $OTHELLER_CONFIG,
// else otheller/config.yaml under the XDG config dirs; environment variables
// override file values. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	file := resolvePath(path)
	if file != "" {
		if err := cleanenv.ReadConfig(file, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads configuration from the environment only, skipping any
// config file.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("OTHELLER_CONFIG")); p != "" {
		return p
	}
	if p, err := xdg.SearchConfigFile(cfgFile); err == nil {
		return p
	}
	return ""
}

func applyDefaults(cfg *Config) {
	cfg.MoveService.URL = strings.TrimRight(strings.TrimSpace(cfg.MoveService.URL), "/")
	cfg.Spectator.Mode = strings.ToLower(strings.TrimSpace(cfg.Spectator.Mode))
	if cfg.ExportDir == "" {
		cfg.ExportDir = filepath.Join(xdg.DataHome, appDir, "boards")
	}
	if cfg.Log.File && cfg.Log.FilePath == "" {
		cfg.Log.FilePath = filepath.Join(xdg.StateHome, appDir, "otheller.log")
	}
}

func (c *Config) Validate() error {
	if c.MoveService.URL == "" {
		return errors.New("MOVE_SERVICE_URL is required")
	}
	if !strings.HasPrefix(c.MoveService.URL, "http://") && !strings.HasPrefix(c.MoveService.URL, "https://") {
		return fmt.Errorf("MOVE_SERVICE_URL must be http(s): %q", c.MoveService.URL)
	}
	if c.MoveService.Timeout <= 0 {
		return errors.New("MOVE_SERVICE_TIMEOUT must be positive")
	}
	if c.MoveService.MaxConns <= 0 {
		return errors.New("MOVE_SERVICE_MAX_CONNS must be positive")
	}
	if c.Play.AutoStepInterval <= 0 || c.Play.MoveDelay <= 0 {
		return errors.New("AUTO_STEP_INTERVAL and AUTO_MOVE_DELAY must be positive")
	}
	switch c.Spectator.Mode {
	case "", "off":
	case "redis":
		if c.Spectator.RedisURL == "" {
			return errors.New("SPECTATOR_REDIS_URL is required for redis mode")
		}
	case "ws":
		if c.Spectator.WSURL == "" {
			return errors.New("SPECTATOR_WS_URL is required for ws mode")
		}
	case "auto":
		if c.Spectator.RedisURL == "" || c.Spectator.WSURL == "" {
			return errors.New("auto spectator mode needs both SPECTATOR_WS_URL and SPECTATOR_REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown SPECTATOR_MODE %q", c.Spectator.Mode)
	}
	return nil
}
