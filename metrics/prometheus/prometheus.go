// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prometheus exposes the process metrics registry through a
// prometheus gatherer, so the counters the pools and the executor register
// can be scraped alongside client_golang collectors.
package prometheus

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Gatherer implements prometheus.Gatherer over a metrics registry.
type Gatherer struct {
	registry metrics.Registry
}

var _ prometheus.Gatherer = (*Gatherer)(nil)

// NewGatherer returns a Gatherer over the given registry. Pass
// metrics.DefaultRegistry for the process-wide one.
func NewGatherer(registry metrics.Registry) *Gatherer {
	return &Gatherer{registry: registry}
}

var errMetricSkip = errors.New("metric skipped")

// Gather collects every supported metric, sorted by name so listings are
// stable.
func (g *Gatherer) Gather() ([]*dto.MetricFamily, error) {
	var names []string
	g.registry.Each(func(name string, _ interface{}) {
		names = append(names, name)
	})
	sort.Strings(names)

	mfs := make([]*dto.MetricFamily, 0, len(names))
	for _, name := range names {
		mf, err := metricFamily(g.registry, name)
		switch {
		case errors.Is(err, errMetricSkip):
			continue
		case err != nil:
			return nil, err
		}
		mfs = append(mfs, mf)
	}
	return mfs, nil
}

func ptrTo[T any](x T) *T { return &x }

func metricFamily(registry metrics.Registry, name string) (*dto.MetricFamily, error) {
	metric := registry.Get(name)
	promName := strings.ReplaceAll(name, "/", "_")

	switch m := metric.(type) {
	case metrics.Counter:
		return &dto.MetricFamily{
			Name: &promName,
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: ptrTo(float64(m.Snapshot().Count()))},
			}},
		}, nil

	case metrics.Gauge:
		return &dto.MetricFamily{
			Name: &promName,
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: ptrTo(float64(m.Snapshot().Value()))},
			}},
		}, nil

	case metrics.GaugeFloat64:
		return &dto.MetricFamily{
			Name: &promName,
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: ptrTo(m.Snapshot().Value())},
			}},
		}, nil

	case metrics.Meter:
		snapshot := m.Snapshot()
		return &dto.MetricFamily{
			Name: &promName,
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: ptrTo(float64(snapshot.Count()))},
			}},
		}, nil

	case metrics.Histogram:
		snapshot := m.Snapshot()
		return summaryFamily(promName, snapshot.Count(), snapshot.Sum(), snapshot.Percentiles), nil

	case metrics.Timer:
		snapshot := m.Snapshot()
		return summaryFamily(promName, snapshot.Count(), snapshot.Sum(), snapshot.Percentiles), nil

	default:
		return nil, fmt.Errorf("%w: %q has unsupported type %T", errMetricSkip, name, metric)
	}
}

var quantiles = []float64{0.5, 0.75, 0.95, 0.99}

func summaryFamily(name string, count int64, sum int64, percentiles func([]float64) []float64) *dto.MetricFamily {
	values := percentiles(quantiles)
	qs := make([]*dto.Quantile, len(quantiles))
	for i, q := range quantiles {
		qs[i] = &dto.Quantile{
			Quantile: ptrTo(q),
			Value:    ptrTo(values[i]),
		}
	}
	return &dto.MetricFamily{
		Name: &name,
		Type: dto.MetricType_SUMMARY.Enum(),
		Metric: []*dto.Metric{{
			Summary: &dto.Summary{
				SampleCount: ptrTo(uint64(count)),
				SampleSum:   ptrTo(float64(sum)),
				Quantile:    qs,
			},
		}},
	}
}
