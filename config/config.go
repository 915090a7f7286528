package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FACTORY_FACTORY_OWNER.
const EnvPrefix = "FACTORY"

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type FactoryConfig struct {
	Owner             common.Address `yaml:"owner" mapstructure:"owner"`
	FeeTo             common.Address `yaml:"feeTo" mapstructure:"feeTo"`
	Sweeper           common.Address `yaml:"sweeper" mapstructure:"sweeper"`
	OwnerOnlyCreation bool           `yaml:"ownerOnlyCreation" mapstructure:"ownerOnlyCreation"`
}

type PoolConfig struct {
	// Deployer is the address pool addresses are derived from. Defaults to the factory owner.
	Deployer     common.Address `yaml:"deployer" mapstructure:"deployer"`
	InitCodeHash common.Hash    `yaml:"initCodeHash" mapstructure:"initCodeHash"`
}

type StorageConfig struct {
	// Path of the SQLite journal. Empty disables persistence.
	Path string `yaml:"path" mapstructure:"path"`
}

// Config is the configuration of the factory daemon.
type Config struct {
	Listen        string `yaml:"listen" mapstructure:"listen"`
	MetricsListen string `yaml:"metricsListen" mapstructure:"metricsListen"`
	// AllowedOrigins lists the browser origins allowed to open a WebSocket. Empty admits only
	// localhost pages and clients that send no Origin header.
	AllowedOrigins []string      `yaml:"allowedOrigins" mapstructure:"allowedOrigins"`
	Log            LogConfig     `yaml:"log" mapstructure:"log"`
	Factory        FactoryConfig `yaml:"factory" mapstructure:"factory"`
	Pool           PoolConfig    `yaml:"pool" mapstructure:"pool"`
	Storage        StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// Defaults returns the configuration used for keys the file leaves out.
func Defaults() Config {
	return Config{
		Listen:         "127.0.0.1:8545",
		MetricsListen:  "127.0.0.1:9090",
		AllowedOrigins: []string{},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads the YAML file at path on top of Defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper returns a viper instance seeded with Defaults, so every key is known to AutomaticEnv.
func newViper() (*viper.Viper, error) {
	defaults, err := yaml.Marshal(Defaults())
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return errors.New("config: listen is required")
	}
	if c.Factory.Owner == (common.Address{}) {
		return errors.New("config: factory.owner is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	if c.Pool.Deployer == (common.Address{}) {
		c.Pool.Deployer = c.Factory.Owner
	}
	return nil
}
