package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, "server.port" is
// read from DG_SERVER_PORT.
const EnvPrefix = "DG"

// FlagKeys maps command line flag names to configuration keys. Flags not
// listed here are ignored by LoadConfig.
var FlagKeys = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"metrics-port":  "server.metrics_port",
	"db-url":        "database.url",
	"cache-backend": "cache.backend",
	"redis-addr":    "cache.redis.address",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// secretKeys may only be supplied through the environment.
var secretKeys = []string{"cache.redis.password"}

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags and the cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return translateValidatorError(err)
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.Redis.Address == "" {
		return errors.New("cache.redis.address is required when cache.backend is redis")
	}
	return nil
}

// translateValidatorError joins the English messages of every failed field
// in a stable order.
func translateValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", configKey(fe.Namespace()), fe.Translate(trans)))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// configKey turns "Config.server.port" into "server.port".
func configKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range secretKeys {
		if v.InConfig(key) {
			env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			return fmt.Errorf("%s not allowed in config files (use %s environment variable)", key, env)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.metrics_port", d.Server.MetricsPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())

	v.SetDefault("grid.cache_key_prefix", d.Grid.CacheKeyPrefix)
	v.SetDefault("grid.cache_timeout", d.Grid.CacheTimeout)
	v.SetDefault("grid.default_page_size", d.Grid.DefaultPageSize)
	v.SetDefault("grid.isolation_level", d.Grid.IsolationLevel)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval.String())
	v.SetDefault("cache.redis.address", d.Cache.Redis.Address)
	v.SetDefault("cache.redis.database", d.Cache.Redis.Database)
	v.SetDefault("cache.redis.pool_size", d.Cache.Redis.PoolSize)

	// Env-only keys still need a default so Unmarshal sees them.
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("database.url", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
