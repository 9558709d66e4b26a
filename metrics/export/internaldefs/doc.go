// Package internaldefs holds the metric names, help strings, and bucket boundaries
// shared by the exporters.
//
// Both the Prometheus and OTel exporters read these definitions, so a session metric
// has the same name in either. Changing a definition here changes every exporter.
//
// Counters track lifecycle transitions (created, restored, extended, cleared, expired),
// forced logouts (401s and removals by another process), and request traffic. The
// request latency histogram covers authenticated round trips only. The live gauges
// report which principal holds the session and how long it has left.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
