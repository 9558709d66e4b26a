package goSession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/internal/lifecycle"
	"github.com/MrEthical07/goSession/internal/watchdog"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// Builder assembles a Manager. A Builder builds once.
type Builder struct {
	config    Config
	backend   storage.Backend
	navigator Navigator
	logger    *slog.Logger
	clock     func() time.Time
	sinks     []EventSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend supplies the storage medium. The Manager does not close a supplied
// backend. Without one, Build opens the backend named by Config.Storage and owns it.
func (b *Builder) WithBackend(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithNavigator sets the navigation port. The default ignores navigation.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces time.Now for every expiry computation.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithEventSink subscribes sink before the first event can fire.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager. It does not restore a
// persisted session; call Manager.Initialize for that.
func (b *Builder) Build() (*Manager, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context for opening network or disk backends.
func (b *Builder) BuildContext(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	nav := b.navigator
	if nav == nil {
		nav = noopNavigator{}
	}

	// -------- IDENTITY --------
	inspector, err := jwt.NewInspector(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		VerifyKey:     []byte(cfg.JWT.VerifyKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt inspector: %w", err)
	}

	// -------- STORAGE --------
	backend := b.backend
	owns := false
	if backend == nil {
		backend, err = storage.Open(ctx, cfg.Storage.options())
		if err != nil {
			return nil, err
		}
		owns = true
	}

	m := &Manager{
		cfg:         cfg,
		backend:     backend,
		ownsBackend: owns,
		store:       session.NewStore(backend),
		inspector:   inspector,
		nav:         nav,
		log:         logger,
		clock:       clock,
		metrics:     NewMetrics(cfg.Metrics),
		events:      newEventDispatcher(cfg.Events, logger),
		auth:        &authSlot{headers: cfg.Headers},
	}
	for _, sink := range b.sinks {
		m.events.Subscribe(sink)
	}

	// -------- WATCHDOG + LIFECYCLE --------
	mode := watchdog.WarnOnce
	if cfg.Watchdog.WarningMode == WarningModeEveryTick {
		mode = watchdog.WarnEveryTick
	}
	m.dog = watchdog.New(watchdog.Config{
		Interval:    cfg.Watchdog.TickInterval,
		WarningMode: mode,
		Clock:       clock,
		OnWarning:   m.onWarning,
		OnExpired:   m.onExpired,
	}, m.checkExpiry)

	m.lc = lifecycle.New(m.store, lifecycle.Config{
		AdminDuration: cfg.Session.AdminDuration,
		UserDuration:  cfg.Session.UserDuration,
		Clock:         clock,
		Logger:        logger,
	}, m.dog, m.auth)

	// -------- CROSS-PROCESS WATCH --------
	if cfg.Storage.WatchFile {
		file, ok := storage.Unwrap(backend).(*storage.File)
		if !ok {
			return nil, errors.Join(ErrWatchRequiresFile, m.closeResources())
		}
		w, err := storage.WatchFile(file, cfg.Storage.WatchDebounce, m.onStoreChanged, m.onWatchError)
		if err != nil {
			return nil, errors.Join(err, m.closeResources())
		}
		m.watcher = w
	}

	b.built = true
	return m, nil
}
