package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

// Config holds every Manager setting. Obtain one from DefaultConfig or LoadConfig and
// treat it as immutable once passed to the Builder.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Headers  HeadersConfig  `mapstructure:"headers"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig sets the lifetime granted by a login or an extension.
type SessionConfig struct {
	AdminDuration time.Duration `mapstructure:"admin_duration"`
	UserDuration  time.Duration `mapstructure:"user_duration"`
}

/*
====================================
WATCHDOG CONFIG
====================================
*/

// Warning modes.
const (
	WarningModeOnce      = "once"
	WarningModeEveryTick = "every_tick"
)

// WatchdogConfig controls the expiry check.
type WatchdogConfig struct {
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	WarningThreshold time.Duration `mapstructure:"warning_threshold"`
	// WarningMode is "once" (one warning per expiry, re-armed by an extension) or
	// "every_tick".
	WarningMode string `mapstructure:"warning_mode"`
}

/*
====================================
HEADERS CONFIG
====================================
*/

// HeadersConfig names the request headers carrying session credentials.
type HeadersConfig struct {
	Authorization string `mapstructure:"authorization"`
	// AuthScheme is used when the admin token bundle names no token type.
	AuthScheme string `mapstructure:"auth_scheme"`
	ClientID   string `mapstructure:"client_id"`
	UserEmail  string `mapstructure:"user_email"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig selects the backend built when the Builder receives none.
type StorageConfig struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisUsername string        `mapstructure:"redis_username"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	Passphrase    string        `mapstructure:"passphrase"`
	WatchFile     bool          `mapstructure:"watch_file"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

func (s StorageConfig) options() storage.Options {
	return storage.Options{
		Driver:        s.Driver,
		Path:          s.Path,
		RedisAddr:     s.RedisAddr,
		RedisUsername: s.RedisUsername,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
		RedisPrefix:   s.RedisPrefix,
		Passphrase:    s.Passphrase,
	}
}

/*
====================================
EVENTS / METRICS / JWT
====================================
*/

// EventsConfig controls event delivery. With Async false, subscribers run on the
// goroutine that caused the transition.
type EventsConfig struct {
	Async      bool `mapstructure:"async"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig toggles in-process counters and the request latency histogram.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// JWTConfig configures how admin access tokens are inspected for identity. An empty
// SigningMethod reads claims without verification.
type JWTConfig struct {
	SigningMethod string        `mapstructure:"signing_method"`
	VerifyKey     string        `mapstructure:"verify_key"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: 8h admin sessions, 24h user sessions,
// a one-minute watchdog that warns once inside five minutes, and in-memory storage.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			AdminDuration: 8 * time.Hour,
			UserDuration:  24 * time.Hour,
		},
		Watchdog: WatchdogConfig{
			TickInterval:     time.Minute,
			WarningThreshold: 5 * time.Minute,
			WarningMode:      WarningModeOnce,
		},
		Headers: HeadersConfig{
			Authorization: "Authorization",
			AuthScheme:    "Bearer",
			ClientID:      "X-Client-ID",
			UserEmail:     "X-User-Email",
		},
		Storage: StorageConfig{
			Driver:        storage.DriverMemory,
			RedisPrefix:   "gs",
			WatchDebounce: 50 * time.Millisecond,
		},
		Events: EventsConfig{
			Async:      true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		JWT: JWTConfig{
			Leeway: 30 * time.Second,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.AdminDuration <= 0 {
		return errors.New("Session AdminDuration must be > 0")
	}
	if c.Session.UserDuration <= 0 {
		return errors.New("Session UserDuration must be > 0")
	}

	// Watchdog
	if c.Watchdog.TickInterval <= 0 {
		return errors.New("Watchdog TickInterval must be > 0")
	}
	if c.Watchdog.WarningThreshold < 0 {
		return errors.New("Watchdog WarningThreshold must be >= 0")
	}
	if c.Watchdog.WarningThreshold >= c.Session.AdminDuration || c.Watchdog.WarningThreshold >= c.Session.UserDuration {
		return errors.New("Watchdog WarningThreshold must be shorter than every session duration")
	}
	switch c.Watchdog.WarningMode {
	case WarningModeOnce, WarningModeEveryTick:
	default:
		return errors.New("Watchdog WarningMode must be 'once' or 'every_tick'")
	}

	// Headers
	for name, value := range map[string]string{
		"Authorization": c.Headers.Authorization,
		"ClientID":      c.Headers.ClientID,
		"UserEmail":     c.Headers.UserEmail,
	} {
		if !validHeaderName(value) {
			return errors.New("Headers " + name + " must be a valid header name")
		}
	}
	if strings.ContainsAny(c.Headers.AuthScheme, " \t\r\n") {
		return errors.New("Headers AuthScheme must be a single token")
	}
	if http.CanonicalHeaderKey(c.Headers.ClientID) == http.CanonicalHeaderKey(c.Headers.UserEmail) {
		return errors.New("Headers ClientID and UserEmail must differ")
	}

	// Storage
	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverFile, storage.DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("Storage Path is required for the " + c.Storage.Driver + " driver")
		}
	case storage.DriverRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("Storage RedisAddr is required for the redis driver")
		}
	default:
		return errors.New("Storage Driver must be memory, file, redis, or sqlite")
	}
	if c.Storage.WatchFile && c.Storage.Driver != storage.DriverFile {
		return errors.New("Storage WatchFile requires the file driver")
	}
	if c.Storage.WatchDebounce < 0 {
		return errors.New("Storage WatchDebounce must be >= 0")
	}

	// Events
	if c.Events.Async && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Async is true")
	}

	// JWT
	switch c.JWT.SigningMethod {
	case "", "unverified":
	case "hs256", "ed25519":
		if c.JWT.VerifyKey == "" {
			return errors.New("JWT VerifyKey is required when SigningMethod verifies signatures")
		}
	default:
		return errors.New("JWT SigningMethod must be empty, 'hs256', or 'ed25519'")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	return nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}
