// Package prometheus serves a session Manager's metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads a [goSession.Manager] on every scrape and exposes an
// [http.Handler]. The output has three parts:
//
//   - Lifecycle counters named gosession_*_total. Created, restored, extended, cleared,
//     and expired follow the session; unauthorized and external_removal count forced
//     logouts; request_authenticated and request_anonymous split outgoing traffic.
//   - gosession_request_latency_seconds, a histogram of authenticated round trips.
//   - Live gauges: gosession_active{kind="admin"|"user"} is 1 for the principal holding
//     the session, and gosession_time_remaining_seconds counts down to its expiry.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate session state.
package prometheus
