package goSession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/lifecycle"
	"github.com/MrEthical07/goSession/internal/watchdog"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

// Reasons carried by cleared, expired, and unauthorized events.
const (
	ReasonLogout   = lifecycle.ReasonLogout
	ReasonExpired  = lifecycle.ReasonExpired
	ReasonUnauth   = lifecycle.ReasonUnauth
	ReasonSwitched = lifecycle.ReasonSwitched
	ReasonReplaced = lifecycle.ReasonReplaced
	ReasonResetAll = lifecycle.ReasonResetAll
	// ReasonExternal means another process removed or replaced the persisted session.
	ReasonExternal = lifecycle.ReasonExternal
)

// State is the authentication state of a Manager.
type State int

const (
	StateUnauthenticated State = iota
	StateAdminActive
	StateUserActive
)

func (s State) String() string {
	switch s {
	case StateAdminActive:
		return "admin_active"
	case StateUserActive:
		return "user_active"
	default:
		return "unauthenticated"
	}
}

// Manager is the session facade. Build one with New().Build().
type Manager struct {
	cfg         Config
	backend     storage.Backend
	ownsBackend bool
	store       *session.Store
	lc          *lifecycle.Manager
	dog         *watchdog.Watchdog
	auth        *authSlot
	inspector   *jwt.Inspector
	watcher     *storage.Watcher
	nav         Navigator
	log         *slog.Logger
	clock       func() time.Time
	metrics     *Metrics
	events      *eventDispatcher

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// LoginAdmin starts an admin session, ending any user session first. onSuccess, when
// non-nil, replaces the default navigation to DestinationAdminHome.
func (m *Manager) LoginAdmin(ctx context.Context, creds session.AdminCredentials, onSuccess func(session.Record)) (session.Record, error) {
	rec, err := m.login(ctx, creds)
	if err != nil {
		return session.Record{}, err
	}
	if onSuccess != nil {
		onSuccess(rec)
	} else {
		m.nav.Navigate(ctx, DestinationAdminHome)
	}
	return rec, nil
}

// LoginUser starts a user session for client, ending any admin session first.
func (m *Manager) LoginUser(ctx context.Context, client session.Client, email string) (session.Record, error) {
	rec, err := m.login(ctx, session.UserIdentity{Client: client, Email: email})
	if err != nil {
		return session.Record{}, err
	}
	m.nav.Navigate(ctx, DestinationUserHome)
	return rec, nil
}

func (m *Manager) login(ctx context.Context, creds session.Credentials) (session.Record, error) {
	if m.closed.Load() {
		return session.Record{}, ErrManagerClosed
	}

	rec, changes, err := m.lc.Create(ctx, creds)
	m.publish(ctx, changes)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			m.metrics.Inc(MetricLoginRejected)
		} else {
			m.metrics.Inc(MetricStorageFailure)
			m.log.Error("goSession: login failed", "error", err)
		}
		return session.Record{}, err
	}
	m.log.Info("goSession: session created", "kind", rec.Kind, "session_id", rec.SessionID)
	return rec, nil
}

// LogoutAdmin ends the admin session and navigates to login. An empty reason means
// ReasonLogout.
func (m *Manager) LogoutAdmin(ctx context.Context, reason string) error {
	return m.logout(ctx, session.KindAdmin, reason)
}

// LogoutUser ends the user session and navigates to login. An empty reason means
// ReasonLogout.
func (m *Manager) LogoutUser(ctx context.Context, reason string) error {
	return m.logout(ctx, session.KindUser, reason)
}

func (m *Manager) logout(ctx context.Context, kind session.Kind, reason string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if reason == "" {
		reason = ReasonLogout
	}

	change, cleared, err := m.lc.Clear(ctx, kind, reason)
	if cleared {
		m.publish(ctx, []lifecycle.Change{change})
	}
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
	}
	m.nav.Navigate(ctx, DestinationLogin)
	return err
}

// ClearAllSessions purges both kinds from storage, ends any active session, and
// navigates to login.
func (m *Manager) ClearAllSessions(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	changes, err := m.lc.ClearAll(ctx, ReasonResetAll)
	m.publish(ctx, changes)
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
	}
	m.nav.Navigate(ctx, DestinationLogin)
	return err
}

// ExtendSession renews the active session. It reports false when nothing is active.
func (m *Manager) ExtendSession(ctx context.Context) (bool, error) {
	if m.closed.Load() {
		return false, ErrManagerClosed
	}

	rec, ok, err := m.lc.Extend(ctx)
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
		return false, err
	}
	if ok {
		m.publish(ctx, []lifecycle.Change{{Op: lifecycle.OpExtended, Record: rec}})
	}
	return ok, nil
}

// Initialize restores a persisted session. Only the first call reads storage.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	_, changes, err := m.lc.Initialize(ctx)
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
		return err
	}
	m.publish(ctx, changes)
	return nil
}

// Resync reconciles the active session with storage after another process wrote it.
func (m *Manager) Resync(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}

	change, err := m.lc.Resync(ctx)
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
		return err
	}
	if change != nil {
		m.publish(ctx, []lifecycle.Change{*change})
	}
	return nil
}

// IsAuthenticated reports whether any session is active.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.lc.Snapshot()
	return ok
}

// IsAdmin reports whether an admin session is active.
func (m *Manager) IsAdmin() bool {
	return m.State() == StateAdminActive
}

// IsUser reports whether a user session is active.
func (m *Manager) IsUser() bool {
	return m.State() == StateUserActive
}

// State returns the current authentication state.
func (m *Manager) State() State {
	a, ok := m.lc.Snapshot()
	switch {
	case !ok:
		return StateUnauthenticated
	case a.Record.Kind == session.KindAdmin:
		return StateAdminActive
	default:
		return StateUserActive
	}
}

// Current returns the active session record.
func (m *Manager) Current() (session.Record, bool) {
	a, ok := m.lc.Snapshot()
	return a.Record, ok
}

// SessionTimeRemaining returns the time left on the active session, or zero.
func (m *Manager) SessionTimeRemaining() time.Duration {
	a, ok := m.lc.Snapshot()
	if !ok {
		return 0
	}
	return a.Record.Remaining(m.clock())
}

// Authorization returns the credentials to attach to an outgoing request.
func (m *Manager) Authorization() (Authorization, bool) {
	return m.auth.Load()
}

// HandleUnauthorized reacts to a 401 response. Whichever session is active is cleared,
// whatever credentials the request carried. The returned error is always an
// *UnauthorizedError.
func (m *Manager) HandleUnauthorized(ctx context.Context, auth Authorization, status int) error {
	m.metrics.Inc(MetricUnauthorized)
	uerr := &UnauthorizedError{StatusCode: status, Kind: auth.Kind, SessionID: auth.SessionID}

	if m.closed.Load() {
		return uerr
	}

	change, cleared, err := m.lc.ClearActive(ctx, ReasonUnauth)
	if err != nil {
		m.metrics.Inc(MetricStorageFailure)
	}
	if cleared {
		uerr.Cleared = true
		uerr.Kind = change.Record.Kind
		uerr.SessionID = change.Record.SessionID
		m.publish(ctx, []lifecycle.Change{change})
	}
	return uerr
}

// ObserveRequest records one outgoing request.
func (m *Manager) ObserveRequest(authenticated bool, d time.Duration) {
	if !authenticated {
		m.metrics.Inc(MetricRequestAnonymous)
		return
	}
	m.metrics.Inc(MetricRequestAuthenticated)
	m.metrics.Observe(MetricRequestLatency, d)
}

// Subscribe registers sink for every later event and returns its cancel function.
func (m *Manager) Subscribe(sink EventSink) func() {
	return m.events.Subscribe(sink)
}

// MetricsSnapshot copies the counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// EventsDropped returns how many events a full async queue discarded.
func (m *Manager) EventsDropped() uint64 {
	return m.events.Dropped()
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// Close stops the watchdog, the file watcher, and event delivery, and closes an owned
// backend. Persisted sessions are kept.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.closeErr = m.closeResources()
	})
	return m.closeErr
}

func (m *Manager) closeResources() error {
	m.dog.Stop()
	m.auth.Uninstall()

	var errs []error
	if m.watcher != nil {
		errs = append(errs, m.watcher.Close())
	}
	m.events.Close()
	if m.ownsBackend {
		errs = append(errs, m.backend.Close())
	}
	return errors.Join(errs...)
}

// publish turns lifecycle changes into metrics, logs, events, and navigation. It must
// run after the lifecycle lock is released.
func (m *Manager) publish(ctx context.Context, changes []lifecycle.Change) {
	forced := false
	for _, c := range changes {
		ev := Event{
			Kind:      c.Record.Kind,
			SessionID: c.Record.SessionID,
			ExpiresAt: c.Record.ExpiresAt,
			Reason:    c.Reason,
			Timestamp: m.clock(),
		}

		switch c.Op {
		case lifecycle.OpCreated:
			ev.Type = EventCreated
			m.metrics.Inc(MetricSessionCreated)
		case lifecycle.OpRestored:
			ev.Type = EventRestored
			m.metrics.Inc(MetricSessionRestored)
		case lifecycle.OpExtended:
			ev.Type = EventExtended
			m.metrics.Inc(MetricSessionExtended)
		case lifecycle.OpCleared:
			switch c.Reason {
			case ReasonExpired:
				ev.Type = EventExpired
				m.metrics.Inc(MetricSessionExpired)
			case ReasonUnauth:
				ev.Type = EventUnauthorized
			case ReasonExternal:
				ev.Type = EventCleared
				m.metrics.Inc(MetricExternalRemoval)
			default:
				ev.Type = EventCleared
				m.metrics.Inc(MetricSessionCleared)
			}
		default:
			continue
		}

		if ev.Forced() {
			forced = true
			m.log.Warn("goSession: session ended", "kind", ev.Kind, "session_id", ev.SessionID, "reason", ev.Reason)
		}
		m.events.Emit(ctx, ev)
	}

	if forced {
		m.nav.Navigate(ctx, DestinationLogin)
	}
}

func (m *Manager) checkExpiry(ctx context.Context, now time.Time) watchdog.Result {
	out := m.lc.Expire(ctx, now, m.cfg.Watchdog.WarningThreshold)
	res := watchdog.Result{
		Kind:      out.Record.Kind,
		SessionID: out.Record.SessionID,
		ExpiresAt: out.Record.ExpiresAt,
		Remaining: out.Remaining,
	}

	switch out.Status {
	case lifecycle.StatusExpired:
		res.Status = watchdog.StatusExpired
	case lifecycle.StatusWarning:
		res.Status = watchdog.StatusWarning
	case lifecycle.StatusHealthy:
		res.Status = watchdog.StatusHealthy
	default:
		res.Status = watchdog.StatusInactive
	}
	return res
}

// onExpired runs after the checker cleared an expired session. The tick context is
// already cancelled by then.
func (m *Manager) onExpired(res watchdog.Result) {
	m.publish(context.Background(), []lifecycle.Change{{
		Op: lifecycle.OpCleared,
		Record: session.Record{
			SessionID: res.SessionID,
			Kind:      res.Kind,
			ExpiresAt: res.ExpiresAt,
		},
		Reason: ReasonExpired,
	}})
}

func (m *Manager) onWarning(res watchdog.Result, minutes int) {
	m.metrics.Inc(MetricExpiryWarning)
	m.log.Info("goSession: session expiring", "kind", res.Kind, "session_id", res.SessionID, "minutes", minutes)
	m.events.Emit(context.Background(), Event{
		Type:             EventWarning,
		Kind:             res.Kind,
		SessionID:        res.SessionID,
		ExpiresAt:        res.ExpiresAt,
		Remaining:        res.Remaining,
		MinutesRemaining: minutes,
		Timestamp:        m.clock(),
	})
}

func (m *Manager) onStoreChanged() {
	if m.closed.Load() {
		return
	}
	if err := m.Resync(context.Background()); err != nil {
		m.log.Error("goSession: resync after store change failed", "error", err)
	}
}

func (m *Manager) onWatchError(err error) {
	m.log.Warn("goSession: store watcher error", "error", err)
}
