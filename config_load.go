package goSession

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GOSESSION_STORAGE_DRIVER for
// storage.driver.
const EnvPrefix = "GOSESSION"

// LoadConfig reads a YAML, TOML, or JSON file over DefaultConfig and applies
// environment overrides. An empty path loads defaults and the environment only. The
// result is validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the
// file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("session.admin_duration", d.Session.AdminDuration)
	v.SetDefault("session.user_duration", d.Session.UserDuration)

	v.SetDefault("watchdog.tick_interval", d.Watchdog.TickInterval)
	v.SetDefault("watchdog.warning_threshold", d.Watchdog.WarningThreshold)
	v.SetDefault("watchdog.warning_mode", d.Watchdog.WarningMode)

	v.SetDefault("headers.authorization", d.Headers.Authorization)
	v.SetDefault("headers.auth_scheme", d.Headers.AuthScheme)
	v.SetDefault("headers.client_id", d.Headers.ClientID)
	v.SetDefault("headers.user_email", d.Headers.UserEmail)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_username", d.Storage.RedisUsername)
	v.SetDefault("storage.redis_password", d.Storage.RedisPassword)
	v.SetDefault("storage.redis_db", d.Storage.RedisDB)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)
	v.SetDefault("storage.passphrase", d.Storage.Passphrase)
	v.SetDefault("storage.watch_file", d.Storage.WatchFile)
	v.SetDefault("storage.watch_debounce", d.Storage.WatchDebounce)

	v.SetDefault("events.async", d.Events.Async)
	v.SetDefault("events.buffer_size", d.Events.BufferSize)
	v.SetDefault("events.drop_if_full", d.Events.DropIfFull)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("jwt.signing_method", d.JWT.SigningMethod)
	v.SetDefault("jwt.verify_key", d.JWT.VerifyKey)
	v.SetDefault("jwt.issuer", d.JWT.Issuer)
	v.SetDefault("jwt.audience", d.JWT.Audience)
	v.SetDefault("jwt.leeway", d.JWT.Leeway)
}
