package observability

import (
	"fmt"
	"math"
	"net/http"
	"strings"
)

// PrometheusExporter renders a Registry in the text exposition format
// so a standard scraper can consume /metrics.
type PrometheusExporter struct {
	registry *Registry
}

func NewPrometheusExporter(registry *Registry) *PrometheusExporter {
	return &PrometheusExporter{registry: registry}
}

func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(e.Format()))
}

// Format renders every registered metric, grouped by kind and sorted
// by name so consecutive scrapes diff cleanly.
func (e *PrometheusExporter) Format() string {
	var b strings.Builder

	e.registry.mu.RLock()
	defer e.registry.mu.RUnlock()

	for _, name := range sortedKeys(e.registry.counters) {
		c := e.registry.counters[name]
		writeHeader(&b, c.name, c.help, "counter")
		fmt.Fprintf(&b, "%s%s %s\n\n", c.name, renderLabels(c.labels), renderValue(c.Value()))
	}

	for _, name := range sortedKeys(e.registry.gauges) {
		g := e.registry.gauges[name]
		writeHeader(&b, g.name, g.help, "gauge")
		fmt.Fprintf(&b, "%s%s %s\n\n", g.name, renderLabels(g.labels), renderValue(g.Value()))
	}

	for _, name := range sortedKeys(e.registry.histograms) {
		h := e.registry.histograms[name]
		buckets, counts, sum, count := h.snapshot()

		writeHeader(&b, h.name, h.help, "histogram")
		for i, bound := range buckets {
			fmt.Fprintf(&b, "%s_bucket%s %d\n", h.name, renderLabelsWith(h.labels, "le", renderValue(bound)), counts[i])
		}
		fmt.Fprintf(&b, "%s_bucket%s %d\n", h.name, renderLabelsWith(h.labels, "le", "+Inf"), count)
		fmt.Fprintf(&b, "%s_sum%s %s\n", h.name, renderLabels(h.labels), renderValue(sum))
		fmt.Fprintf(&b, "%s_count%s %d\n\n", h.name, renderLabels(h.labels), count)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

// renderLabels returns {k1="v1",k2="v2"} with keys sorted, or the
// empty string when there are no labels.
func renderLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, k := range sortedKeys(labels) {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// renderLabelsWith merges one extra pair into the label set, used for
// the histogram le bound.
func renderLabelsWith(base map[string]string, key, value string) string {
	merged := make(map[string]string, len(base)+1)
	for k, v := range base {
		merged[k] = v
	}
	merged[key] = value
	return renderLabels(merged)
}

func renderValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}
