// Package config loads moodlog settings from .moodlog.yaml and MOODLOG_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/sadopc/moodlog/internal/store"
)

const (
	KeyDB                = "db"
	KeyFlagsDir          = "flags_dir"
	KeyAPIURL            = "api_url"
	KeyAPIToken          = "api_token"
	KeyListen            = "listen"
	KeyTrendDays         = "trend_days"
	KeyMinTagOccurrences = "min_tag_occurrences"
	KeyDuplicatePolicy   = "duplicate_policy"
	KeyDebugLog          = "debug_log"
)

type Config struct {
	DBPath            string
	FlagsDir          string
	APIURL            string
	APIToken          string
	Listen            string
	TrendDays         int
	MinTagOccurrences int
	DuplicatePolicy   string
	DebugLog          string
}

// Remote reports whether the journal lives behind a moodlog server.
func (c *Config) Remote() bool {
	return strings.TrimSpace(c.APIURL) != ""
}

// New returns a viper instance with moodlog's defaults, search paths and
// environment binding. Callers may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()

	dir := defaultDir()
	dbPath := filepath.Join(dir, "moodlog.db")
	if p, err := store.DefaultDBPath(); err == nil {
		dbPath = p
	}
	v.SetDefault(KeyDB, dbPath)
	v.SetDefault(KeyFlagsDir, filepath.Join(dir, "flags"))
	v.SetDefault(KeyAPIURL, "")
	v.SetDefault(KeyAPIToken, "")
	v.SetDefault(KeyListen, "127.0.0.1:5001")
	v.SetDefault(KeyTrendDays, 7)
	v.SetDefault(KeyMinTagOccurrences, 2)
	v.SetDefault(KeyDuplicatePolicy, "last")
	v.SetDefault(KeyDebugLog, "")

	v.SetConfigName(".moodlog") // .yaml is implicit
	v.SetEnvPrefix("MOODLOG")
	v.AutomaticEnv()

	if override := os.Getenv("MOODLOG_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	v.AddConfigPath(dir)
	return v
}

// Load reads the config file, if any, and resolves the final values. A
// missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = New()
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:            strings.TrimSpace(v.GetString(KeyAPIURL)),
		APIToken:          v.GetString(KeyAPIToken),
		Listen:            v.GetString(KeyListen),
		TrendDays:         v.GetInt(KeyTrendDays),
		MinTagOccurrences: v.GetInt(KeyMinTagOccurrences),
		DuplicatePolicy:   v.GetString(KeyDuplicatePolicy),
	}

	var err error
	if cfg.DBPath, err = expand(v.GetString(KeyDB)); err != nil {
		return nil, err
	}
	if cfg.FlagsDir, err = expand(v.GetString(KeyFlagsDir)); err != nil {
		return nil, err
	}
	if cfg.DebugLog, err = expand(v.GetString(KeyDebugLog)); err != nil {
		return nil, err
	}

	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	if cfg.MinTagOccurrences <= 0 {
		cfg.MinTagOccurrences = 2
	}
	return cfg, nil
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return p, nil
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "moodlog")
	}
	if home, err := homedir.Dir(); err == nil {
		return filepath.Join(home, ".moodlog")
	}
	return ".moodlog"
}
