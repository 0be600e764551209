package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goGate.MetricsSnapshot
	AuditDropped() uint64
}

// configSource is implemented by *goGate.Gate; sources that provide it also
// get the route table version and limiter policies rendered as gauges.
type configSource interface {
	Config() goGate.Config
}

// PrometheusExporter renders goGate metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from gate.
func NewPrometheusExporter(gate *goGate.Gate) *PrometheusExporter {
	return &PrometheusExporter{source: gate}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// value with MetricsSnapshot and AuditDropped methods.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, "gogate_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", dropped)

	if cs, ok := p.source.(configSource); ok {
		writeConfigGauges(&b, cs.Config())
	}

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

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

	// Sum is not available in core snapshots; keep a stable field for compatibility.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func writeConfigGauges(b *strings.Builder, cfg goGate.Config) {
	b.WriteString("# HELP gogate_route_policy_info Active route table version.\n")
	b.WriteString("# TYPE gogate_route_policy_info gauge\n")
	b.WriteString("gogate_route_policy_info{version=\"")
	b.WriteString(escapeLabel(cfg.Routes.Version))
	b.WriteString("\"} 1\n")

	if len(cfg.Limits) == 0 {
		return
	}
	b.WriteString("# HELP gogate_rate_limit_policy_limit Configured events per window for each limiter policy.\n")
	b.WriteString("# TYPE gogate_rate_limit_policy_limit gauge\n")
	for _, p := range cfg.Limits {
		b.WriteString("gogate_rate_limit_policy_limit{policy=\"")
		b.WriteString(escapeLabel(p.Name))
		b.WriteString("\",backend=\"")
		b.WriteString(escapeLabel(string(p.Backend)))
		b.WriteString("\",failure_mode=\"")
		b.WriteString(escapeLabel(string(p.FailureMode)))
		b.WriteString("\"} ")
		b.WriteString(strconv.Itoa(p.Limit))
		b.WriteByte('\n')
	}
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
