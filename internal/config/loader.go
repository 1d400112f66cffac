package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configDir  = ".dashtools"
	configFile = "config"
	configType = "yaml"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"database.type":     "DATABASE_TYPE",
	"database.path":     "DATABASE_PATH",
	"postgres.host":     "POSTGRES_HOST",
	"postgres.port":     "POSTGRES_PORT",
	"postgres.user":     "POSTGRES_USER",
	"postgres.password": "POSTGRES_PASSWORD",
	"postgres.db":       "POSTGRES_DB",
	"postgres.schema":   "POSTGRES_SCHEMA",
	"postgres.sslmode":  "POSTGRES_SSLMODE",
	"postgres.keyring":  "POSTGRES_KEYRING",
	"server.host":       "HOST",
	"server.port":       "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "dashtools.db")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "dashtools")
	v.SetDefault("postgres.password", "dashtools")
	v.SetDefault("postgres.db", "dashtools")
	v.SetDefault("postgres.schema", "public")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.keyring", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
}

// Load reads the configuration. An explicit path must exist; otherwise
// ~/.dashtools/config.yaml is used when present. Environment variables
// override both. Keyring passwords are not read here; see ResolvePassword.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFile)
		v.SetConfigType(configType)
		if dir, err := configDirPath(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or to ~/.dashtools/config.yaml when
// path is empty. Passwords kept in the keyring are not written.
func Save(cfg *Config, path string) error {
	if path == "" {
		dir, err := configDirPath()
		if err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
		path = filepath.Join(dir, configFile+"."+configType)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	pg := cfg.Postgres
	if pg.Keyring {
		pg.Password = ""
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("database", cfg.Database)
	v.Set("postgres", pg)
	v.Set("server", cfg.Server)

	return v.WriteConfigAs(path)
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
