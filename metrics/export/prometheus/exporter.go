package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	EventsDropped() uint64
}

// PrometheusExporter renders a Manager's session counters, its request latency histogram,
// and the dispatcher's dropped-event count as Prometheus text. When the source also
// reports live state, it adds gosession_active{kind} and gosession_time_remaining_seconds.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter that reads m on every scrape, live gauges
// included. A nil m renders nothing.
func NewPrometheusExporter(m *goSession.Manager) *PrometheusExporter {
	if m == nil {
		return &PrometheusExporter{}
	}
	return &PrometheusExporter{source: m}
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source. Live
// gauges are added only if source implements internaldefs.SessionState.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when the Manager was built with metrics
// disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.EventsDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, internaldefs.EventsDroppedName, internaldefs.EventsDroppedHelp, dropped)

	if live, ok := p.source.(internaldefs.SessionState); ok {
		writeActive(&b, internaldefs.ActiveGauges(live.State()))
		remaining := strconv.FormatFloat(live.SessionTimeRemaining().Seconds(), 'f', -1, 64)
		writeHeader(&b, internaldefs.RemainingName, internaldefs.RemainingHelp, "gauge")
		b.WriteString(internaldefs.RemainingName)
		b.WriteByte(' ')
		b.WriteString(remaining)
		b.WriteByte('\n')
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeActive(b *strings.Builder, gauges [2]internaldefs.ActiveGauge) {
	writeHeader(b, internaldefs.ActiveName, internaldefs.ActiveHelp, "gauge")
	for _, g := range gauges {
		b.WriteString(internaldefs.ActiveName)
		b.WriteString("{" + internaldefs.ActiveKindLabel + "=\"")
		b.WriteString(g.Kind)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatInt(g.Value, 10))
		b.WriteByte('\n')
	}
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	count := cumulative[len(cumulative)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Latency snapshots keep bucket counts only, so the sum is not known.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
