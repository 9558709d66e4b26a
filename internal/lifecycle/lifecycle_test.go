package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu        sync.Mutex
	running   bool
	installed *Active
	starts    int
}

func (r *recorder) Start() {
	r.mu.Lock()
	r.running = true
	r.starts++
	r.mu.Unlock()
}

func (r *recorder) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *recorder) Install(a Active) {
	r.mu.Lock()
	r.installed = &a
	r.mu.Unlock()
}

func (r *recorder) Uninstall() {
	r.mu.Lock()
	r.installed = nil
	r.mu.Unlock()
}

type flakyBackend struct {
	storage.Backend
	failApply bool
}

func (f *flakyBackend) Apply(ctx context.Context, b storage.Batch) error {
	if f.failApply {
		return errors.New("disk full")
	}
	return f.Backend.Apply(ctx, b)
}

type fixture struct {
	mgr   *Manager
	mem   *storage.Memory
	store *session.Store
	clock *fakeClock
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemory()
	t.Cleanup(func() { _ = mem.Close() })
	return newFixtureOn(t, mem, mem)
}

func newFixtureOn(t *testing.T, mem *storage.Memory, backend storage.Backend) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	rec := &recorder{}
	store := session.NewStore(backend)
	mgr := New(store, Config{Clock: clock.Now}, rec, rec)
	return &fixture{mgr: mgr, mem: mem, store: store, clock: clock, rec: rec}
}

func adminCreds() session.AdminCredentials {
	return session.AdminCredentials{AccessToken: "at", RefreshToken: "rt"}
}

func userCreds() session.UserIdentity {
	return session.UserIdentity{Client: session.Client{ID: "c-1", Email: "c@x.test"}, Email: "u@x.test"}
}

func TestCreateAdmin(t *testing.T) {
	f := newFixture(t)

	rec, changes, err := f.mgr.Create(context.Background(), adminCreds())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ExpiresAt-rec.LoginTime != (8 * time.Hour).Milliseconds() {
		t.Fatalf("admin duration = %dms", rec.ExpiresAt-rec.LoginTime)
	}
	if !strings.HasPrefix(rec.SessionID, "session_1700000000000_") || len(rec.SessionID) != len("session_1700000000000_")+9 {
		t.Fatalf("unexpected session id %q", rec.SessionID)
	}
	if len(changes) != 1 || changes[0].Op != OpCreated {
		t.Fatalf("unexpected changes %+v", changes)
	}
	if !f.rec.running || f.rec.installed == nil || f.rec.installed.Record != rec {
		t.Fatal("watchdog and authorizer must be installed")
	}

	entry, err := f.store.Read(context.Background(), session.KindAdmin)
	if err != nil || entry == nil || entry.Record != rec {
		t.Fatalf("persisted record mismatch: %v %v", entry, err)
	}
}

func TestCreateRejectsMissingCredentialsWithoutWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.mgr.Create(ctx, adminCreds()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := f.mem.Snapshot()

	for _, creds := range []session.Credentials{nil, session.AdminCredentials{}, session.UserIdentity{Email: "x"}} {
		if _, _, err := f.mgr.Create(ctx, creds); !errors.Is(err, session.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials for %#v, got %v", creds, err)
		}
	}

	after := f.mem.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("rejected create touched storage: %v -> %v", before, after)
	}
	if a, ok := f.mgr.Snapshot(); !ok || a.Record.Kind != session.KindAdmin {
		t.Fatal("prior admin session must survive a rejected create")
	}
}

func TestCreateUserClearsAdminFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	user, changes, err := f.mgr.Create(ctx, userCreds())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("expected clear then create, got %+v", changes)
	}
	if changes[0].Op != OpCleared || changes[0].Record != admin || changes[0].Reason != ReasonSwitched {
		t.Fatalf("first change must clear admin: %+v", changes[0])
	}
	if changes[1].Op != OpCreated || changes[1].Record != user {
		t.Fatalf("second change must create user: %+v", changes[1])
	}

	raw := f.mem.Snapshot()
	for _, k := range session.Keys(session.KindAdmin) {
		if _, ok := raw[k]; ok {
			t.Fatalf("admin key %s still stored", k)
		}
	}
	a, ok := f.mgr.Snapshot()
	if !ok || a.Record.Kind != session.KindUser {
		t.Fatalf("expected user active, got %+v", a)
	}
}

func TestCreateWriteFailureLeavesMemory(t *testing.T) {
	mem := storage.NewMemory()
	flaky := &flakyBackend{Backend: mem}
	f := newFixtureOn(t, mem, flaky)
	ctx := context.Background()

	if _, _, err := f.mgr.Create(ctx, userCreds()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	flaky.failApply = true

	if _, _, err := f.mgr.Create(ctx, userCreds()); !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if a, ok := f.mgr.Snapshot(); !ok || a.Record.Kind != session.KindUser {
		t.Fatal("failed write must not replace the active session")
	}
}

func TestExtendStrictlyIncreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, ok, err := f.mgr.Extend(ctx); ok || err != nil {
		t.Fatalf("extend with nothing active must be a no-op: %v %v", ok, err)
	}

	orig, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same instant: the recomputed expiry equals the current one and gets bumped.
	same, ok, err := f.mgr.Extend(ctx)
	if err != nil || !ok {
		t.Fatalf("extend: %v %v", ok, err)
	}
	if same.ExpiresAt != orig.ExpiresAt+1 {
		t.Fatalf("expected bump by 1ms, got %d -> %d", orig.ExpiresAt, same.ExpiresAt)
	}

	f.clock.Advance(time.Hour)
	later, _, err := f.mgr.Extend(ctx)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if later.ExpiresAt <= same.ExpiresAt {
		t.Fatal("expiry must increase")
	}
	if later.SessionID != orig.SessionID || later.LoginTime != orig.LoginTime {
		t.Fatal("session id and login time are immutable")
	}

	entry, _ := f.store.Read(ctx, session.KindAdmin)
	if entry == nil || entry.Record != later {
		t.Fatalf("extension not persisted: %+v", entry)
	}
}

func TestClearScopesToKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.mgr.Create(ctx, adminCreds()); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, cleared, err := f.mgr.Clear(ctx, session.KindUser, ReasonLogout); cleared || err != nil {
		t.Fatalf("clearing the inactive kind must not end the session: %v %v", cleared, err)
	}
	if _, ok := f.mgr.Snapshot(); !ok {
		t.Fatal("admin session lost")
	}

	change, cleared, err := f.mgr.Clear(ctx, session.KindAdmin, ReasonLogout)
	if !cleared || err != nil || change.Reason != ReasonLogout {
		t.Fatalf("expected admin cleared: %+v %v %v", change, cleared, err)
	}
	if f.rec.running || f.rec.installed != nil {
		t.Fatal("watchdog and authorizer must be removed")
	}
	if n := len(f.mem.Snapshot()); n != 0 {
		t.Fatalf("expected empty storage, found %d keys", n)
	}
}

func TestClearResetsMemoryWhenPurgeFails(t *testing.T) {
	mem := storage.NewMemory()
	flaky := &flakyBackend{Backend: mem}
	f := newFixtureOn(t, mem, flaky)
	ctx := context.Background()

	if _, _, err := f.mgr.Create(ctx, adminCreds()); err != nil {
		t.Fatalf("create: %v", err)
	}
	flaky.failApply = true

	_, cleared, err := f.mgr.Clear(ctx, session.KindAdmin, ReasonLogout)
	if err == nil {
		t.Fatal("expected purge error")
	}
	if !cleared {
		t.Fatal("memory must be reset even when the purge fails")
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Fatal("session still active")
	}
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.mgr.Create(ctx, userCreds()); err != nil {
		t.Fatalf("create: %v", err)
	}
	// A stray admin entry written by someone else.
	other := session.NewStore(f.mem)
	stray := session.Record{SessionID: "stray", Kind: session.KindAdmin, LoginTime: 1, ExpiresAt: 2}
	if err := other.Write(ctx, session.KindAdmin, stray, adminCreds()); err != nil {
		t.Fatalf("seed stray: %v", err)
	}

	changes, err := f.mgr.ClearAll(ctx, ReasonResetAll)
	if err != nil || len(changes) != 1 {
		t.Fatalf("clear all: %+v %v", changes, err)
	}
	if n := len(f.mem.Snapshot()); n != 0 {
		t.Fatalf("expected empty storage, found %d keys", n)
	}
}

func TestInitializeRestoresAndPrefersAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now().UnixMilli()

	admin := session.Record{SessionID: "a1", Kind: session.KindAdmin, LoginTime: now - 1000, ExpiresAt: now + 60_000}
	user := session.Record{SessionID: "u1", Kind: session.KindUser, LoginTime: now - 1000, ExpiresAt: now + 60_000}
	if err := f.store.Write(ctx, session.KindAdmin, admin, adminCreds()); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Write(ctx, session.KindUser, user, userCreds()); err != nil {
		t.Fatal(err)
	}

	active, changes, err := f.mgr.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if active == nil || active.Record != admin {
		t.Fatalf("expected admin restored, got %+v", active)
	}
	if len(changes) != 1 || changes[0].Op != OpRestored {
		t.Fatalf("unexpected changes %+v", changes)
	}
	if entry, _ := f.store.Read(ctx, session.KindUser); entry != nil {
		t.Fatal("losing user session must be purged")
	}
	if !f.rec.running || f.rec.installed == nil {
		t.Fatal("restore must start watchdog and install authorizer")
	}

	// Second call is a no-op even if storage changes underneath.
	if _, _, err := f.mgr.Clear(ctx, session.KindUser, ReasonLogout); err != nil {
		t.Fatal(err)
	}
	again, changes, err := f.mgr.Initialize(ctx)
	if err != nil || changes != nil || again == nil || again.Record != admin {
		t.Fatalf("second initialize must be a no-op: %+v %+v %v", again, changes, err)
	}
}

func TestInitializeSkipsExpiredAndCorrupt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now().UnixMilli()

	expired := session.Record{SessionID: "a1", Kind: session.KindAdmin, LoginTime: now - 10_000, ExpiresAt: now - 1}
	if err := f.store.Write(ctx, session.KindAdmin, expired, adminCreds()); err != nil {
		t.Fatal(err)
	}
	if err := f.mem.Apply(ctx, storage.Batch{Set: map[string]string{session.KeyUserSession: "garbage", session.KeyUserData: "{}"}}); err != nil {
		t.Fatal(err)
	}

	active, changes, err := f.mgr.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if active != nil || len(changes) != 0 {
		t.Fatalf("nothing should be restored: %+v %+v", active, changes)
	}
	if n := len(f.mem.Snapshot()); n != 0 {
		t.Fatalf("expired and corrupt entries must be purged, found %d keys", n)
	}
	if f.rec.running {
		t.Fatal("watchdog must not run without a session")
	}
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if out := f.mgr.Expire(ctx, f.clock.Now(), 5*time.Minute); out.Status != StatusInactive {
		t.Fatalf("expected inactive, got %v", out.Status)
	}

	rec, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatal(err)
	}

	if out := f.mgr.Expire(ctx, f.clock.Now(), 5*time.Minute); out.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %v", out.Status)
	}

	warnAt := time.UnixMilli(rec.ExpiresAt).Add(-4 * time.Minute)
	out := f.mgr.Expire(ctx, warnAt, 5*time.Minute)
	if out.Status != StatusWarning || out.Remaining != 4*time.Minute {
		t.Fatalf("expected 4m warning, got %+v", out)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	late := time.UnixMilli(rec.ExpiresAt).Add(time.Minute)
	if out := f.mgr.Expire(cancelled, late, 5*time.Minute); out.Status != StatusInactive {
		t.Fatal("cancelled check must not act")
	}
	if _, ok := f.mgr.Snapshot(); !ok {
		t.Fatal("cancelled check cleared the session")
	}

	out = f.mgr.Expire(ctx, late, 5*time.Minute)
	if out.Status != StatusExpired || out.Change == nil || out.Change.Reason != ReasonExpired {
		t.Fatalf("expected expiry, got %+v", out)
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Fatal("expired session still active")
	}
	if n := len(f.mem.Snapshot()); n != 0 {
		t.Fatalf("expired session not purged, %d keys left", n)
	}
}

func TestClearActiveEndsWhicheverSessionIsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, cleared, err := f.mgr.ClearActive(ctx, ReasonUnauth); cleared || err != nil {
		t.Fatalf("nothing active: cleared=%v err=%v", cleared, err)
	}

	if _, _, err := f.mgr.Create(ctx, userCreds()); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Second)
	fresh, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatal(err)
	}

	change, cleared, err := f.mgr.ClearActive(ctx, ReasonUnauth)
	if err != nil || !cleared {
		t.Fatalf("cleared=%v err=%v", cleared, err)
	}
	if change.Record.SessionID != fresh.SessionID || change.Reason != ReasonUnauth || change.Op != OpCleared {
		t.Fatalf("unexpected change %+v", change)
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Fatal("session still active")
	}
	if n := len(f.mem.Snapshot()); n != 0 {
		t.Fatalf("%d keys left after clear", n)
	}
}

func TestResyncLeavesCorruptEntryInStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatal(err)
	}
	garbage := map[string]string{session.KeyAdminSession: "{written by another process"}
	if err := f.mem.Apply(ctx, storage.Batch{Set: garbage}); err != nil {
		t.Fatal(err)
	}

	change, err := f.mgr.Resync(ctx)
	if err != nil || change == nil || change.Op != OpCleared || change.Reason != ReasonExternal {
		t.Fatalf("expected external removal: %+v %v", change, err)
	}
	if change.Record.SessionID != rec.SessionID {
		t.Fatalf("cleared %s, want %s", change.Record.SessionID, rec.SessionID)
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Fatal("session still active")
	}
	snap := f.mem.Snapshot()
	if snap[session.KeyAdminSession] != "{written by another process" || snap[session.KeyAdminToken] == "" {
		t.Fatalf("resync purged shared storage: %v", snap)
	}
}

func TestResync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, _, err := f.mgr.Create(ctx, adminCreds())
	if err != nil {
		t.Fatal(err)
	}

	if change, err := f.mgr.Resync(ctx); change != nil || err != nil {
		t.Fatalf("unchanged storage must be a no-op: %+v %v", change, err)
	}

	moved := rec
	moved.ExpiresAt += 60_000
	if err := f.store.Write(ctx, session.KindAdmin, moved, adminCreds()); err != nil {
		t.Fatal(err)
	}
	change, err := f.mgr.Resync(ctx)
	if err != nil || change == nil || change.Op != OpExtended {
		t.Fatalf("expected adopted extension: %+v %v", change, err)
	}
	if a, _ := f.mgr.Snapshot(); a.Record.ExpiresAt != moved.ExpiresAt {
		t.Fatal("extension not adopted")
	}

	if err := f.store.Clear(ctx, session.KindAdmin); err != nil {
		t.Fatal(err)
	}
	change, err = f.mgr.Resync(ctx)
	if err != nil || change == nil || change.Op != OpCleared || change.Reason != ReasonExternal {
		t.Fatalf("expected external removal: %+v %v", change, err)
	}
	if _, ok := f.mgr.Snapshot(); ok {
		t.Fatal("session still active after external removal")
	}
}

func TestNeverBothKindsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seq := []session.Credentials{adminCreds(), userCreds(), userCreds(), adminCreds(), adminCreds(), userCreds()}
	for i, creds := range seq {
		if _, _, err := f.mgr.Create(ctx, creds); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		admin, _ := f.store.Read(ctx, session.KindAdmin)
		user, _ := f.store.Read(ctx, session.KindUser)
		if admin != nil && user != nil {
			t.Fatalf("step %d: both kinds persisted", i)
		}
		a, ok := f.mgr.Snapshot()
		if !ok || a.Record.Kind != creds.Kind() {
			t.Fatalf("step %d: wrong active kind", i)
		}
	}
}
