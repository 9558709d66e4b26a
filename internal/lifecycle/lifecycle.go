package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

// Reasons attached to forced or implicit clears.
const (
	ReasonLogout   = "User logout"
	ReasonExpired  = "Session expired"
	ReasonUnauth   = "Unauthorized"
	ReasonExternal = "Session removed externally"
	ReasonSwitched = "Principal switched"
	ReasonReplaced = "Session replaced"
	ReasonResetAll = "All sessions cleared"
)

const (
	idSuffixLength  = 9
	defaultAdminTTL = 8 * time.Hour
	defaultUserTTL  = 24 * time.Hour
)

// Scheduler starts and stops the expiry watchdog. Both calls must return promptly.
type Scheduler interface {
	Start()
	Stop()
}

// Installer publishes the active credentials to the request path. Both calls must return
// promptly.
type Installer interface {
	Install(Active)
	Uninstall()
}

// Active is the session currently in memory.
type Active struct {
	Record      session.Record
	Credentials session.Credentials
}

// Op names the kind of transition a Change reports.
type Op int

const (
	OpCreated Op = iota + 1
	OpRestored
	OpExtended
	OpCleared
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpRestored:
		return "restored"
	case OpExtended:
		return "extended"
	case OpCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Change is one observable transition.
type Change struct {
	Op     Op
	Record session.Record
	Reason string
}

// Status is the verdict of Expire.
type Status int

const (
	StatusInactive Status = iota
	StatusHealthy
	StatusWarning
	StatusExpired
)

// Outcome is the result of Expire.
type Outcome struct {
	Status    Status
	Record    session.Record
	Remaining time.Duration
	Change    *Change
}

// Config configures a Manager.
type Config struct {
	AdminDuration time.Duration
	UserDuration  time.Duration
	Clock         func() time.Time
	Logger        *slog.Logger
	// NewID overrides session id generation.
	NewID func(now time.Time) string
}

// Manager is the single owner of the active session. It is safe for concurrent use.
type Manager struct {
	cfg       Config
	store     *session.Store
	scheduler Scheduler
	installer Installer
	log       *slog.Logger

	mu          sync.Mutex
	active      *Active
	initialized bool
}

// New returns a Manager with no active session. scheduler and installer may be nil.
func New(store *session.Store, cfg Config, scheduler Scheduler, installer Installer) *Manager {
	if cfg.AdminDuration <= 0 {
		cfg.AdminDuration = defaultAdminTTL
	}
	if cfg.UserDuration <= 0 {
		cfg.UserDuration = defaultUserTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = NewSessionID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		installer: installer,
		log:       logger,
	}
}

// NewSessionID returns "session_<epoch-ms>_<9 random characters>".
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLength]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

// Duration returns the configured lifetime of kind.
func (m *Manager) Duration(kind session.Kind) time.Duration {
	if kind == session.KindAdmin {
		return m.cfg.AdminDuration
	}
	return m.cfg.UserDuration
}

// Create starts a session for the kind of creds.
//
// Invalid credentials are rejected before any storage write. Otherwise the other kind is
// cleared first, then the new session is persisted and made active. The returned changes
// list the clear (if one happened) followed by the creation.
func (m *Manager) Create(ctx context.Context, creds session.Credentials) (session.Record, []Change, error) {
	if creds == nil {
		return session.Record{}, nil, fmt.Errorf("%w: nil payload", session.ErrMissingCredentials)
	}
	kind := creds.Kind()
	if err := session.ValidateFor(kind, creds); err != nil {
		return session.Record{}, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var changes []Change
	other := kind.Other()
	change, cleared, err := m.clearLocked(ctx, other, ReasonSwitched)
	if cleared {
		changes = append(changes, change)
	}
	if err != nil {
		return session.Record{}, changes, err
	}

	now := m.cfg.Clock()
	rec := session.Record{
		SessionID: m.cfg.NewID(now),
		Kind:      kind,
		LoginTime: now.UnixMilli(),
		ExpiresAt: now.Add(m.Duration(kind)).UnixMilli(),
	}
	if err := m.store.Write(ctx, kind, rec, creds); err != nil {
		return session.Record{}, changes, err
	}

	if m.active != nil && m.active.Record.Kind == kind {
		changes = append(changes, Change{Op: OpCleared, Record: m.active.Record, Reason: ReasonReplaced})
	}
	m.activateLocked(Active{Record: rec, Credentials: creds})
	m.initialized = true

	changes = append(changes, Change{Op: OpCreated, Record: rec})
	return rec, changes, nil
}

// Extend pushes the expiry of the active session to now plus its kind's duration. The
// new expiry is always strictly later than the old one. It reports false when nothing is
// active.
func (m *Manager) Extend(ctx context.Context) (session.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return session.Record{}, false, nil
	}

	cur := *m.active
	rec := cur.Record
	next := m.cfg.Clock().Add(m.Duration(rec.Kind)).UnixMilli()
	if next <= rec.ExpiresAt {
		next = rec.ExpiresAt + 1
	}
	rec.ExpiresAt = next

	if err := m.store.Write(ctx, rec.Kind, rec, cur.Credentials); err != nil {
		return cur.Record, false, err
	}
	m.activateLocked(Active{Record: rec, Credentials: cur.Credentials})
	return rec, true, nil
}

// Clear purges kind from storage and, when kind is active, ends the session. Memory is
// reset even when the purge fails; the purge error is returned.
func (m *Manager) Clear(ctx context.Context, kind session.Kind, reason string) (Change, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx, kind, reason)
}

// ClearAll purges both kinds in one batch and ends any active session.
func (m *Manager) ClearAll(ctx context.Context, reason string) ([]Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.ClearAll(ctx)
	if err != nil {
		m.log.Error("goSession: clear all failed", "reason", reason, "error", err)
	}

	var changes []Change
	if m.active != nil {
		changes = append(changes, Change{Op: OpCleared, Record: m.active.Record, Reason: reason})
	}
	m.deactivateLocked()
	return changes, err
}

// ClearActive ends whichever session is active and purges its kind. It reports false
// when nothing is active.
func (m *Manager) ClearActive(ctx context.Context, reason string) (Change, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Change{}, false, nil
	}
	return m.clearLocked(ctx, m.active.Record.Kind, reason)
}

// Initialize restores a persisted session once. Expired records are purged, and when
// both kinds are stored the admin session wins and the user session is purged. Later
// calls return the current state without reading storage.
func (m *Manager) Initialize(ctx context.Context) (*Active, []Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return m.snapshotLocked(), nil, nil
	}

	now := m.cfg.Clock()
	var found []session.Entry
	for _, kind := range session.Kinds {
		entry, err := m.store.Read(ctx, kind)
		if errors.Is(err, session.ErrCorrupt) {
			m.log.Warn("goSession: purged corrupt session", "kind", kind, "error", err)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if entry == nil {
			continue
		}
		if entry.Record.Expired(now) {
			if err := m.store.Clear(ctx, kind); err != nil {
				m.log.Error("goSession: purge of expired session failed", "kind", kind, "error", err)
			}
			m.log.Info("goSession: expired session not restored", "kind", kind, "session_id", entry.Record.SessionID)
			continue
		}
		found = append(found, *entry)
	}

	m.initialized = true
	if len(found) == 0 {
		return nil, nil, nil
	}

	// session.Kinds lists admin first, so found[0] wins a tie.
	winner := found[0]
	for _, loser := range found[1:] {
		if err := m.store.Clear(ctx, loser.Record.Kind); err != nil {
			m.log.Error("goSession: purge of losing session failed", "kind", loser.Record.Kind, "error", err)
		}
	}

	m.activateLocked(Active{Record: winner.Record, Credentials: winner.Credentials})
	m.log.Info("goSession: session restored", "kind", winner.Record.Kind, "session_id", winner.Record.SessionID)
	return m.snapshotLocked(), []Change{{Op: OpRestored, Record: winner.Record}}, nil
}

// Expire evaluates the active session at now. An expired session is cleared inside the
// same critical section. Nothing happens once ctx is done.
func (m *Manager) Expire(ctx context.Context, now time.Time, warnWithin time.Duration) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil || m.active == nil {
		return Outcome{Status: StatusInactive}
	}

	rec := m.active.Record
	remaining := rec.Remaining(now)
	switch {
	case remaining <= 0:
		// The caller's context belongs to the loop this clear is about to stop.
		change, _, _ := m.clearLocked(context.WithoutCancel(ctx), rec.Kind, ReasonExpired)
		return Outcome{Status: StatusExpired, Record: rec, Change: &change}
	case remaining <= warnWithin:
		return Outcome{Status: StatusWarning, Record: rec, Remaining: remaining}
	default:
		return Outcome{Status: StatusHealthy, Record: rec, Remaining: remaining}
	}
}

// Resync compares the active session with storage. A record that vanished, cannot be
// decoded, or now carries another session id ends the in-memory session without touching
// storage; a moved expiry is adopted.
func (m *Manager) Resync(ctx context.Context) (*Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, nil
	}
	cur := *m.active

	entry, err := m.store.Peek(ctx, cur.Record.Kind)
	if err != nil && !errors.Is(err, session.ErrCorrupt) {
		return nil, err
	}

	if entry == nil || entry.Record.SessionID != cur.Record.SessionID {
		m.deactivateLocked()
		return &Change{Op: OpCleared, Record: cur.Record, Reason: ReasonExternal}, nil
	}
	if entry.Record.ExpiresAt != cur.Record.ExpiresAt {
		m.activateLocked(Active{Record: entry.Record, Credentials: entry.Credentials})
		return &Change{Op: OpExtended, Record: entry.Record}, nil
	}
	return nil, nil
}

// Snapshot returns a copy of the active session.
func (m *Manager) Snapshot() (Active, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Active{}, false
	}
	return *m.active, true
}

// Initialized reports whether a restore or create has happened.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

func (m *Manager) clearLocked(ctx context.Context, kind session.Kind, reason string) (Change, bool, error) {
	err := m.store.Clear(ctx, kind)
	if err != nil {
		m.log.Error("goSession: session purge failed", "kind", kind, "reason", reason, "error", err)
	}

	var change Change
	cleared := false
	if m.active != nil && m.active.Record.Kind == kind {
		change = Change{Op: OpCleared, Record: m.active.Record, Reason: reason}
		cleared = true
		m.deactivateLocked()
	}
	return change, cleared, err
}

func (m *Manager) activateLocked(a Active) {
	m.active = &a
	if m.scheduler != nil {
		m.scheduler.Start()
	}
	if m.installer != nil {
		m.installer.Install(a)
	}
}

func (m *Manager) deactivateLocked() {
	m.active = nil
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.installer != nil {
		m.installer.Uninstall()
	}
}

func (m *Manager) snapshotLocked() *Active {
	if m.active == nil {
		return nil
	}
	a := *m.active
	return &a
}
