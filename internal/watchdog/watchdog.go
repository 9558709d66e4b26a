package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// Status is the verdict of one check.
type Status int

const (
	// StatusInactive means no session is active.
	StatusInactive Status = iota
	// StatusHealthy means the session is outside the warning window.
	StatusHealthy
	// StatusWarning means the session expires within the warning threshold.
	StatusWarning
	// StatusExpired means the session was expired and has been cleared by the checker.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusExpired:
		return "expired"
	default:
		return "inactive"
	}
}

// Result describes the session a check looked at.
type Result struct {
	Status    Status
	Kind      session.Kind
	SessionID string
	ExpiresAt int64
	Remaining time.Duration
}

// Checker evaluates the current session at now. When it reports StatusExpired the checker
// has already cleared the session. It must observe ctx and do nothing once ctx is done.
type Checker func(ctx context.Context, now time.Time) Result

// WarningMode controls how often the expiry warning fires.
type WarningMode int

const (
	// WarnOnce fires once per session expiry; an extension re-arms it.
	WarnOnce WarningMode = iota
	// WarnEveryTick fires on every tick inside the warning window.
	WarnEveryTick
)

// Config configures a Watchdog.
type Config struct {
	Interval    time.Duration
	WarningMode WarningMode
	Clock       func() time.Time

	// OnWarning receives the result and the whole minutes left, rounded up.
	OnWarning func(res Result, minutes int)
	// OnExpired is called after the checker cleared an expired session.
	OnExpired func(res Result)
}

// DefaultInterval is the tick cadence used when Config.Interval is unset.
const DefaultInterval = time.Minute

// Watchdog is a restartable periodic task. Start and Stop may be called from inside a
// Checker or callback; neither blocks on the running loop.
type Watchdog struct {
	cfg   Config
	check Checker

	mu     sync.Mutex
	cancel context.CancelFunc
	warned warnKey
}

type warnKey struct {
	sessionID string
	expiresAt int64
}

// New returns a stopped Watchdog.
func New(cfg Config, check Checker) *Watchdog {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Watchdog{cfg: cfg, check: check}
}

// Start begins ticking, replacing any loop already running.
func (w *Watchdog) Start() {
	ctx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.cancel = cancel
	w.mu.Unlock()

	ticker := time.NewTicker(w.cfg.Interval)
	go w.loop(ctx, ticker)
}

// Stop cancels the running loop, if any. A tick already in progress sees its context
// cancelled and performs no action.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Running reports whether a loop is active.
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watchdog) loop(ctx context.Context, ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			w.Tick(ctx)
		}
	}
}

// Tick runs one check synchronously and fires the matching callback.
func (w *Watchdog) Tick(ctx context.Context) Result {
	res := w.check(ctx, w.cfg.Clock())

	switch res.Status {
	case StatusExpired:
		if w.cfg.OnExpired != nil {
			w.cfg.OnExpired(res)
		}
	case StatusWarning:
		if ctx.Err() != nil || !w.shouldWarn(res) {
			return res
		}
		if w.cfg.OnWarning != nil {
			w.cfg.OnWarning(res, Minutes(res.Remaining))
		}
	}
	return res
}

func (w *Watchdog) shouldWarn(res Result) bool {
	if w.cfg.WarningMode == WarnEveryTick {
		return true
	}
	key := warnKey{sessionID: res.SessionID, expiresAt: res.ExpiresAt}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.warned == key {
		return false
	}
	w.warned = key
	return true
}

// Minutes rounds d up to whole minutes.
func Minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
