package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	authservice "github.com/goserg/eventserver/auth/service"

	"github.com/BurntSushi/toml"
)

const (
	EnvDSN            = "EVENTSERVER_DB_DSN"
	EnvTokenSecret    = "EVENTSERVER_TOKEN_SECRET"
	EnvPasswordPepper = "EVENTSERVER_PASSWORD_PEPPER"
	EnvTelegramToken  = "TELEGRAM_APITOKEN"
)

type Server struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	Debug          bool          `toml:"debug"`
	LogLevel       string        `toml:"log_level"`
	StorageTimeout time.Duration `toml:"storage_timeout"`
}

type Storage struct {
	// Driver is one of "sqlite", "postgres" or "memory".
	Driver     string `toml:"driver"`
	SQLiteFile string `toml:"sqlite_file"`
	DSN        string `toml:"dsn"`
	MaxConns   int32  `toml:"max_conns"`
}

type Notify struct {
	// Mode is "subscribers" or "broadcast".
	Mode           string `toml:"mode"`
	BufferSize     int    `toml:"buffer_size"`
	DefaultMessage string `toml:"default_message"`
}

type Reminder struct {
	Enabled  bool          `toml:"enabled"`
	Schedule string        `toml:"schedule"`
	Window   time.Duration `toml:"window"`
	Dedupe   bool          `toml:"dedupe"`
	Sinks    []string      `toml:"sinks"`
}

type Telegram struct {
	APIToken string `toml:"api_token"`
	ChatID   int64  `toml:"chat_id"`
}

type Config struct {
	Server   Server             `toml:"server"`
	Storage  Storage            `toml:"storage"`
	Auth     authservice.Config `toml:"auth"`
	Notify   Notify             `toml:"notify"`
	Reminder Reminder           `toml:"reminder"`
	Telegram Telegram           `toml:"telegram"`
}

func Default() Config {
	return Config{
		Server: Server{
			Host:           "0.0.0.0",
			Port:           8080,
			LogLevel:       "info",
			StorageTimeout: 5 * time.Second,
		},
		Storage: Storage{
			Driver:     "sqlite",
			SQLiteFile: "events.db",
			MaxConns:   10,
		},
		Auth: authservice.Config{
			TokenTTL: 24 * time.Hour,
		},
		Notify: Notify{
			Mode:           "subscribers",
			BufferSize:     16,
			DefaultMessage: "Event updated or canceled",
		},
		Reminder: Reminder{
			Enabled:  true,
			Schedule: "@every 12s",
			Window:   30 * time.Minute,
			Dedupe:   true,
			Sinks:    []string{"log"},
		},
	}
}

// New reads the TOML file at path over the defaults and applies environment overrides.
// A missing file is not an error.
func New(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if secret := os.Getenv(EnvTokenSecret); secret != "" {
		cfg.Auth.TokenSecret = secret
	}
	if pepper := os.Getenv(EnvPasswordPepper); pepper != "" {
		cfg.Auth.PasswordPepper = pepper
	}
	if token := os.Getenv(EnvTelegramToken); token != "" {
		cfg.Telegram.APIToken = token
	}
}

func (c Config) Validate() error {
	var err error
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLiteFile == "" {
			err = errors.Join(err, errors.New("storage.sqlite_file is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			err = errors.Join(err, fmt.Errorf("storage.dsn or %s is required for the postgres driver", EnvDSN))
		}
	case "memory":
	default:
		err = errors.Join(err, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Notify.Mode {
	case "subscribers", "broadcast":
	default:
		err = errors.Join(err, fmt.Errorf("unknown notify.mode %q", c.Notify.Mode))
	}
	for _, sink := range c.Reminder.Sinks {
		switch sink {
		case "log", "stream":
		case "telegram":
			if c.Telegram.APIToken == "" || c.Telegram.ChatID == 0 {
				err = errors.Join(err, errors.New("telegram reminder sink needs telegram.api_token and telegram.chat_id"))
			}
		default:
			err = errors.Join(err, fmt.Errorf("unknown reminder sink %q", sink))
		}
	}
	return err
}
