// Package metrics exports kernel activity as Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danpasecinic/keel"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Collector counts resolutions, releases and registrations through kernel
// observers and reports the instances each lifestyle holds at scrape time.
//
//	c := metrics.NewCollector("app")
//	k := keel.New(c.Options()...)
//	k.AddFacility(c)
//	registry.MustRegister(c)
type Collector struct {
	resolutions     *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	releases        *prometheus.CounterVec
	releaseDuration *prometheus.HistogramVec
	registrations   *prometheus.CounterVec

	live    *prometheus.Desc
	idle    *prometheus.Desc
	waiting *prometheus.Desc

	mu     sync.RWMutex
	kernel *keel.Kernel
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_resolutions_total",
				Help:      "Total number of component resolutions",
			},
			[]string{"component", "result"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "component_resolve_duration_seconds",
				Help:      "Time spent resolving a component, dependencies included",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"component"},
		),
		releases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_releases_total",
				Help:      "Total number of decommissioned component instances",
			},
			[]string{"component", "result"},
		),
		releaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "component_release_duration_seconds",
				Help:      "Time spent decommissioning a component instance",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"component"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_registrations_total",
				Help:      "Total number of component registrations",
			},
			[]string{"component"},
		),
		live: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "component_live_instances"),
			"Instances currently held by the component lifestyle",
			[]string{"component", "lifestyle"}, nil,
		),
		idle: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "component_idle_instances"),
			"Pooled instances waiting to be handed out",
			[]string{"component"}, nil,
		),
		waiting: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "component_waiting"),
			"1 while the component waits for a dependency, 0 once valid",
			[]string{"component"}, nil,
		),
	}
}

// Options installs the collector's observers on a new kernel.
func (c *Collector) Options() []keel.Option {
	return []keel.Option{
		keel.WithResolveObserver(c.observeResolve),
		keel.WithReleaseObserver(c.observeRelease),
		keel.WithRegisterObserver(c.observeRegister),
	}
}

// Init attaches the kernel whose handlers are reported at scrape time.
func (c *Collector) Init(k *keel.Kernel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kernel = k
	return nil
}

// Terminate detaches the kernel.
func (c *Collector) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kernel = nil
	return nil
}

func (c *Collector) observeResolve(component string, duration time.Duration, err error) {
	c.resolutions.WithLabelValues(component, result(err)).Inc()
	c.resolveDuration.WithLabelValues(component).Observe(duration.Seconds())
}

func (c *Collector) observeRelease(component string, duration time.Duration, err error) {
	c.releases.WithLabelValues(component, result(err)).Inc()
	c.releaseDuration.WithLabelValues(component).Observe(duration.Seconds())
}

func (c *Collector) observeRegister(component string) {
	c.registrations.WithLabelValues(component).Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.resolutions.Describe(ch)
	c.resolveDuration.Describe(ch)
	c.releases.Describe(ch)
	c.releaseDuration.Describe(ch)
	c.registrations.Describe(ch)
	ch <- c.live
	ch <- c.idle
	ch <- c.waiting
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.resolutions.Collect(ch)
	c.resolveDuration.Collect(ch)
	c.releases.Collect(ch)
	c.releaseDuration.Collect(ch)
	c.registrations.Collect(ch)

	c.mu.RLock()
	k := c.kernel
	c.mu.RUnlock()
	if k == nil || k.Disposed() {
		return
	}

	for _, h := range k.Handlers() {
		ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(h.Live), h.Name, h.Lifestyle)
		if h.Idle > 0 {
			ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(h.Idle), h.Name)
		}

		waiting := 0.0
		if h.State != keel.Valid {
			waiting = 1
		}
		ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, waiting, h.Name)
	}
}
