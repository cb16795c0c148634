package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names a YAML config file to load before the environment.
const ConfigFileEnv = "CONFIG_FILE"

// LoadConfigFromFile loads a YAML config file. Environment variables still
// override values from the file.
func LoadConfigFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("configuration file not found: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	return load(v)
}

// LoadConfigForEnv loads from CONFIG_FILE when set and from the environment
// alone otherwise.
func LoadConfigForEnv() (*Config, error) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return LoadConfigFromFile(path)
	}
	return LoadConfig()
}

// ConfigTemplate renders the default configuration for env as YAML.
// Secrets are left empty.
func ConfigTemplate(env Environment) ([]byte, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	cfg.Server.Environment = env
	if env == EnvProduction {
		cfg.Server.AllowedOrigins = []string{"https://bot.example.com"}
		cfg.Settings.Backend = BackendPostgres
		cfg.Database.SSLMode = "require"
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config marshal failed: %w", err)
	}
	header := fmt.Sprintf("# oweather-bot config for %s. Environment variables override these values.\n", env)
	return append([]byte(header), out...), nil
}
