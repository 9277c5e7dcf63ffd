package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink aggregates metric updates into a prometheus registry. Metric
// families are created lazily on first use, keyed by group, name, and the
// set of dimension keys; the group becomes the metric name prefix.
type Sink struct {
	registry *prometheus.Registry

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewSink creates an empty metrics sink with its own registry.
func NewSink() *Sink {
	return &Sink{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Handler exposes the sink's registry in prometheus text format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// IncrCounter adds val to the counter identified by group, name, and the
// dimension values.
func (s *Sink) IncrCounter(group, name string, val Value, dims Dimension) {
	labels := labelNames(dims)
	vec := s.counterVec(group, name, labels)
	vec.With(prometheus.Labels(dims)).Add(float64(val))
}

// UpdateGauge sets the gauge identified by group and name to val.
func (s *Sink) UpdateGauge(group, name string, val Value, dims Dimension) {
	labels := labelNames(dims)
	vec := s.gaugeVec(group, name, labels)
	vec.With(prometheus.Labels(dims)).Set(float64(val))
}

func (s *Sink) counterVec(group, name string, labels []string) *prometheus.CounterVec {
	key := familyKey(group, name, labels)
	s.mu.Lock()
	defer s.mu.Unlock()
	if vec, ok := s.counters[key]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName(group, name),
	}, labels)
	s.registry.MustRegister(vec)
	s.counters[key] = vec
	return vec
}

func (s *Sink) gaugeVec(group, name string, labels []string) *prometheus.GaugeVec {
	key := familyKey(group, name, labels)
	s.mu.Lock()
	defer s.mu.Unlock()
	if vec, ok := s.gauges[key]; ok {
		return vec
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricName(group, name),
	}, labels)
	s.registry.MustRegister(vec)
	s.gauges[key] = vec
	return vec
}

func labelNames(dims Dimension) []string {
	if len(dims) == 0 {
		return nil
	}
	names := make([]string, 0, len(dims))
	for k := range dims {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func metricName(group, name string) string {
	return sanitize(group) + "_" + sanitize(name)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, s)
}

func familyKey(group, name string, labels []string) string {
	return metricName(group, name) + "|" + strings.Join(labels, ",")
}

var (
	defaultSink     = NewSink()
	defaultSinkLock sync.RWMutex
)

// SetDefaultSink replaces the package-level sink. Intended for tests.
func SetDefaultSink(s *Sink) {
	defaultSinkLock.Lock()
	defaultSink = s
	defaultSinkLock.Unlock()
}

func getDefaultSink() *Sink {
	defaultSinkLock.RLock()
	defer defaultSinkLock.RUnlock()
	return defaultSink
}

// Handler exposes the default sink for the /metrics endpoint.
func Handler() http.Handler {
	return getDefaultSink().Handler()
}

// IncrCounterWithGroup adds val to a counter in the given group.
func IncrCounterWithGroup(group, name string, val Value) {
	getDefaultSink().IncrCounter(group, name, val, nil)
}

// IncrCounterWithDimGroup adds val to a counter in the given group with
// dimension labels.
func IncrCounterWithDimGroup(group, name string, val Value, dims Dimension) {
	getDefaultSink().IncrCounter(group, name, val, dims)
}

// UpdateGaugeWithGroup sets a gauge in the given group.
func UpdateGaugeWithGroup(group, name string, val Value) {
	getDefaultSink().UpdateGauge(group, name, val, nil)
}

// UpdateGaugeWithDimGroup sets a gauge in the given group with dimension
// labels.
func UpdateGaugeWithDimGroup(group, name string, val Value, dims Dimension) {
	getDefaultSink().UpdateGauge(group, name, val, dims)
}
