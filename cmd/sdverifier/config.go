package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/TomCN0803/sdverify/pkg/issuer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "SDVERIFIER"

type config struct {
	Issuers []string  `mapstructure:"issuers"`
	Workers int       `mapstructure:"workers"`
	Log     logConfig `mapstructure:"log"`
}

type logConfig struct {
	Level string `mapstructure:"level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	return v
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("config", "", "configuration file")
	flags.StringSlice("issuers", nil, "files holding trusted issuer parameters")
	flags.Int("workers", runtime.NumCPU(), "checks of one verification run concurrently")
	flags.String("log-level", "info", "log level")

	return multierr.Combine(
		v.BindPFlag("config", flags.Lookup("config")),
		v.BindPFlag("issuers", flags.Lookup("issuers")),
		v.BindPFlag("workers", flags.Lookup("workers")),
		v.BindPFlag("log.level", flags.Lookup("log-level")),
	)
}

func loadConfig(v *viper.Viper) (*config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	cfg := new(config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func (c *config) logger() (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// registry loads every issuer parameter file named by the configuration.
func (c *config) registry() (*issuer.Registry, error) {
	if len(c.Issuers) == 0 {
		return nil, fmt.Errorf("no issuer parameters configured, set issuers or %s_ISSUERS", envPrefix)
	}
	params := make([]*issuer.PublicParams, 0, len(c.Issuers))
	for _, file := range c.Issuers {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read issuer parameters: %w", err)
		}
		pp, err := issuer.Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		params = append(params, pp)
	}
	return issuer.NewRegistry(params...)
}
