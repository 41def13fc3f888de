// Package promrecorder backs the merchant metrics contract with
// Prometheus collectors. Collectors register lazily on first use, one
// vector per metric name, labeled with the tag keys of that first
// observation.
package promrecorder

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-merchant/core"
)

type Recorder struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	counters   map[string]*counterEntry
	histograms map[string]*histogramEntry
}

type counterEntry struct {
	vec  *prometheus.CounterVec
	keys []string
}

type histogramEntry struct {
	vec  *prometheus.HistogramVec
	keys []string
}

// New builds a recorder against the given registerer; nil uses the
// default registry.
func New(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Recorder{
		registerer: registerer,
		counters:   map[string]*counterEntry{},
		histograms: map[string]*histogramEntry{},
	}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	metric := sanitizeMetricName(name)
	if metric == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.counters[metric]
	if !ok {
		keys := sortedTagKeys(tags)
		entry = &counterEntry{
			vec: promauto.With(r.registerer).NewCounterVec(prometheus.CounterOpts{
				Name: metric,
				Help: "Count of " + metric + " events.",
			}, keys),
			keys: keys,
		}
		r.counters[metric] = entry
	}
	r.mu.Unlock()

	entry.vec.With(labelsFor(entry.keys, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metric := sanitizeMetricName(name)
	if metric == "" {
		return
	}
	r.mu.Lock()
	entry, ok := r.histograms[metric]
	if !ok {
		keys := sortedTagKeys(tags)
		entry = &histogramEntry{
			vec: promauto.With(r.registerer).NewHistogramVec(prometheus.HistogramOpts{
				Name:    metric,
				Help:    "Distribution of " + metric + " observations.",
				Buckets: prometheus.DefBuckets,
			}, keys),
			keys: keys,
		}
		r.histograms[metric] = entry
	}
	r.mu.Unlock()

	entry.vec.With(labelsFor(entry.keys, tags)).Observe(value)
}

// sanitizeMetricName rewrites dotted metric names into the underscore
// form Prometheus accepts.
func sanitizeMetricName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for _, char := range name {
		switch {
		case char >= 'a' && char <= 'z':
			builder.WriteRune(char)
		case char >= '0' && char <= '9':
			builder.WriteRune(char)
		default:
			builder.WriteByte('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func sortedTagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// labelsFor fills every registered label; tags absent from this
// observation become "" so the cardinality stays stable.
func labelsFor(keys []string, tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(keys))
	for _, key := range keys {
		labels[key] = tags[key]
	}
	return labels
}

var _ core.MetricsRecorder = (*Recorder)(nil)
