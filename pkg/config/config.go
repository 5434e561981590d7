// Package config loads the server's TOML configuration file and fills
// in defaults for anything left unset.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port      string `toml:"port"`
	DBPath    string `toml:"db_path"`
	LabelLang string `toml:"label_lang"`
	Edgar     Edgar  `toml:"edgar"`
	Cache     Cache  `toml:"cache"`
}

type Edgar struct {
	UserAgent string `toml:"user_agent"`
	RateLimit int    `toml:"rate_limit"` // requests per second
}

type Cache struct {
	MaxAge time.Duration `toml:"max_age"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:      "8080",
		DBPath:    "xbrlview.db",
		LabelLang: "en",
		Edgar: Edgar{
			UserAgent: "xbrlview (admin@xbrlview.example)",
			RateLimit: 10,
		},
		Cache: Cache{
			MaxAge: 30 * 24 * time.Hour,
		},
	}
}

// Load reads a TOML config file, applying defaults for unset fields.
// A missing file is not an error: the defaults are used as-is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "xbrlview.db"
	}
	if cfg.LabelLang == "" {
		cfg.LabelLang = "en"
	}
	if cfg.Edgar.RateLimit <= 0 {
		cfg.Edgar.RateLimit = 10
	}
	if cfg.Cache.MaxAge == 0 {
		cfg.Cache.MaxAge = 30 * 24 * time.Hour
	}

	return cfg, nil
}
