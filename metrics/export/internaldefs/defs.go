package internaldefs

import (
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// EventsDroppedName is the counter for events discarded by a full async queue.
const (
	EventsDroppedName = "gosession_events_dropped_total"
	EventsDroppedHelp = "Events dropped because the async dispatcher queue was full."
)

// Live session gauges. They are exported only by sources that implement SessionState.
const (
	ActiveName      = "gosession_active"
	ActiveHelp      = "1 for the principal kind that holds the active session, 0 for the other."
	ActiveKindLabel = "kind"
	RemainingName   = "gosession_time_remaining_seconds"
	RemainingHelp   = "Seconds until the active session expires; 0 when no session is active."
)

// SessionState reports the live session. *goSession.Manager implements it.
type SessionState interface {
	State() goSession.State
	SessionTimeRemaining() time.Duration
}

// ActiveGauge is one kind-labelled sample of ActiveName.
type ActiveGauge struct {
	Kind  string
	Value int64
}

// ActiveGauges returns one sample per principal kind, admin first. At most one is 1.
func ActiveGauges(state goSession.State) [2]ActiveGauge {
	out := [2]ActiveGauge{
		{Kind: string(session.KindAdmin)},
		{Kind: string(session.KindUser)},
	}
	switch state {
	case goSession.StateAdminActive:
		out[0].Value = 1
	case goSession.StateUserActive:
		out[1].Value = 1
	}
	return out
}

// CounterDefs lists every counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions created by a login."},
	{ID: goSession.MetricSessionRestored, Name: "gosession_session_restored_total", Help: "Sessions restored from storage at start."},
	{ID: goSession.MetricSessionExtended, Name: "gosession_session_extended_total", Help: "Session extensions, local or adopted from storage."},
	{ID: goSession.MetricSessionCleared, Name: "gosession_session_cleared_total", Help: "Sessions cleared by logout, principal switch, or reset."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Sessions cleared by the expiry watchdog."},
	{ID: goSession.MetricExpiryWarning, Name: "gosession_expiry_warning_total", Help: "Expiry warnings delivered."},
	{ID: goSession.MetricUnauthorized, Name: "gosession_unauthorized_total", Help: "401 responses seen by the request transport."},
	{ID: goSession.MetricExternalRemoval, Name: "gosession_external_removal_total", Help: "Sessions ended because another process changed storage."},
	{ID: goSession.MetricLoginRejected, Name: "gosession_login_rejected_total", Help: "Logins rejected for missing credentials."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Storage backend errors surfaced by the manager."},
	{ID: goSession.MetricRequestAuthenticated, Name: "gosession_request_authenticated_total", Help: "Requests sent with session credentials."},
	{ID: goSession.MetricRequestAnonymous, Name: "gosession_request_anonymous_total", Help: "Requests sent without session credentials."},
}

// HistogramDefs lists every histogram in exposition order.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRequestLatency, Name: "gosession_request_latency_seconds", Help: "Latency of requests sent with session credentials."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching
// goSession.HistogramBounds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds for use inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
