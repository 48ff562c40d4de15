package otel

import (
	"context"
	"errors"
	"fmt"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope callers should pass to
// MeterProvider.Meter.
const ScopeName = "github.com/MrEthical07/tokenAuth"

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() tokenAuth.MetricsSnapshot
	AuditDropped() uint64
}

// reading reports one instrument's value from a collected snapshot.
type reading func(o metric.Observer, snap tokenAuth.MetricsSnapshot, dropped uint64)

// Exporter publishes engine counters as asynchronous instruments. Values are
// read from the engine on each collection; Close unregisters the callback.
type Exporter struct {
	source       metricsSource
	readings     []reading
	registration metric.Registration
}

// NewExporter binds engine metrics to meter.
func NewExporter(meter metric.Meter, engine *tokenAuth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		id := def.ID
		observables = append(observables, c)
		e.readings = append(e.readings, func(o metric.Observer, snap tokenAuth.MetricsSnapshot, _ uint64) {
			o.ObserveInt64(c, int64(snap.Counters[id]))
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		gauges, err := histogramGauges(meter, def)
		if err != nil {
			return nil, err
		}
		id := def.ID
		for _, g := range gauges {
			observables = append(observables, g)
		}
		e.readings = append(e.readings, func(o metric.Observer, snap tokenAuth.MetricsSnapshot, _ uint64) {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
			for i, v := range cumulative {
				o.ObserveInt64(gauges[i], int64(v))
			}
			// the trailing +Inf bucket doubles as the sample count
			o.ObserveInt64(gauges[len(cumulative)], int64(cumulative[len(cumulative)-1]))
		})
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, dropped)
	e.readings = append(e.readings, func(o metric.Observer, _ tokenAuth.MetricsSnapshot, n uint64) {
		o.ObserveInt64(dropped, int64(n))
	})

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

// histogramGauges returns one gauge per cumulative bucket followed by the
// count gauge.
func histogramGauges(meter metric.Meter, def internaldefs.HistogramDef) ([]metric.Int64ObservableGauge, error) {
	out := make([]metric.Int64ObservableGauge, 0, len(internaldefs.HistogramBoundSuffix)+1)
	for _, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative gate latency bucket count."))
		if err != nil {
			return nil, fmt.Errorf("gauge %s: %w", name, err)
		}
		out = append(out, g)
	}
	name := def.Name + "_count"
	g, err := meter.Int64ObservableGauge(name, metric.WithDescription("Gate latency sample count."))
	if err != nil {
		return nil, fmt.Errorf("gauge %s: %w", name, err)
	}
	return append(out, g), nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	for _, r := range e.readings {
		r(o, snap, dropped)
	}
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
