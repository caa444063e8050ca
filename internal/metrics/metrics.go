// Package metrics records operation outcomes for the store and provisioner.
package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives one observation per completed operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Observe(context.Context, string, bool, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Since observes the time elapsed from start. Intended for defer:
//
//	defer metrics.Since(ctx, rec, "store.load", time.Now(), &err)
func Since(ctx context.Context, r Recorder, operation string, start time.Time, err *error) {
	r.Observe(ctx, operation, err == nil || *err == nil, time.Since(start))
}

// Prometheus exports observations as a counter and a histogram:
//
//	northwind_operations_total{operation, outcome}
//	northwind_operation_duration_seconds{operation}
type Prometheus struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "northwind",
			Name:      "operations_total",
			Help:      "Completed operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "northwind",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{p.total, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Observe records a service operation outcome.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	p.total.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// WriteSummary prints one line per counter series and a count and sum line
// per histogram series gathered from g, in gather order.
func WriteSummary(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			labels := ""
			if len(pairs) > 0 {
				labels = "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}
