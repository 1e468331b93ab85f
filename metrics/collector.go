// Package metrics exports Prometheus metrics for namespace operations and
// tree size.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives one call per dispatched operation. Transports accept a
// Recorder so metrics stay optional.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, size int64, err error)
	ObserveTree(st memfs.Stats)
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordOperation(string, time.Duration, int64, error) {}
func (Nop) ObserveTree(memfs.Stats)                              {}

// Collector is a [Recorder] backed by its own Prometheus registry
type Collector struct {
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec
	nodesGauge        *prometheus.GaugeVec
	bytesGauge        prometheus.Gauge
	handlesGauge      prometheus.Gauge
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace
func NewCollector(namespace string) (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initMetrics(namespace)
	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

// RecordOperation counts an operation and observes its duration. size is
// the number of bytes moved, 0 for metadata operations.
func (c *Collector) RecordOperation(operation string, duration time.Duration, size int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
		c.errorCounter.With(prometheus.Labels{
			"operation": operation,
			"type":      ErrorType(err),
		}).Inc()
	}
	c.operationCounter.With(prometheus.Labels{
		"operation": operation,
		"status":    status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())
	if size > 0 {
		c.operationSize.With(prometheus.Labels{"operation": operation}).Observe(float64(size))
	}
}

// ObserveTree sets the tree gauges from a stats snapshot
func (c *Collector) ObserveTree(st memfs.Stats) {
	c.nodesGauge.With(prometheus.Labels{"kind": memfs.DirKind.String()}).Set(float64(st.Directories))
	c.nodesGauge.With(prometheus.Labels{"kind": memfs.FileKind.String()}).Set(float64(st.Files))
	c.bytesGauge.Set(float64(st.Bytes))
	c.handlesGauge.Set(float64(st.OpenHandles))
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ErrorType classifies err into a low cardinality label value
func ErrorType(err error) string {
	switch {
	case errors.Is(err, memfs.ErrNotFound):
		return "not_found"
	case errors.Is(err, memfs.ErrNotADirectory):
		return "not_a_directory"
	case errors.Is(err, memfs.ErrNotAFile):
		return "not_a_file"
	case errors.Is(err, memfs.ErrNameCollision):
		return "name_collision"
	case errors.Is(err, memfs.ErrDirectoryNotEmpty):
		return "directory_not_empty"
	case errors.Is(err, memfs.ErrNameTooLong):
		return "name_too_long"
	case errors.Is(err, memfs.ErrInvalidPath), errors.Is(err, memfs.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, memfs.ErrBadHandle):
		return "bad_handle"
	case errors.Is(err, memfs.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, memfs.ErrTooManyOpen):
		return "too_many_open"
	default:
		return "internal"
	}
}

func (c *Collector) initMetrics(namespace string) {
	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of operations",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		},
		[]string{"operation"},
	)

	c.operationSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_size_bytes",
			Help:      "Bytes read or written per operation",
			Buckets:   prometheus.ExponentialBuckets(512, 4, 10), // 512B to ~128MB
		},
		[]string{"operation"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed operations by error type",
		},
		[]string{"operation", "type"},
	)

	c.nodesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Number of nodes in the tree",
		},
		[]string{"kind"},
	)

	c.bytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "content_bytes",
		Help:      "Total bytes held in file buffers",
	})

	c.handlesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_handles",
		Help:      "Number of open file handles",
	})
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.operationSize,
		c.errorCounter,
		c.nodesGauge,
		c.bytesGauge,
		c.handlesGauge,
	}
	for _, m := range metrics {
		if err := c.registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}
