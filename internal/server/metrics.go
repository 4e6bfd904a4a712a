package server

import (
	"context"
	"strconv"

	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "nitro"

// Metrics is the set of collectors a Server exposes on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	RepositoryRequests *prometheus.CounterVec
	Deploys            *prometheus.CounterVec
	WebhookDeliveries  *prometheus.CounterVec
}

// NewMetrics builds the collectors on a private registry. sessions may be nil.
func NewMetrics(controller *registry.Controller, sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		RepositoryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "repository",
				Name:      "requests_total",
				Help:      "Total number of protocol requests by repository and status code.",
			},
			[]string{"storage", "repository", "type", "code"},
		),
		Deploys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "repository",
				Name:      "deploys_total",
				Help:      "Total number of deployed package versions.",
			},
			[]string{"storage", "repository", "type"},
		),
		WebhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "webhook",
				Name:      "deliveries_total",
				Help:      "Total number of webhook deliveries by result.",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.RepositoryRequests,
		m.Deploys,
		m.WebhookDeliveries,
	)
	if controller != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "storages",
				Help:      "Number of registered storages.",
			}, func() float64 { return float64(controller.Stats().Storages) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "storages_unavailable",
				Help:      "Number of registered storages that failed to load.",
			}, func() float64 { return float64(controller.Stats().BadStorages) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "repositories",
				Help:      "Number of loaded repositories.",
			}, func() float64 { return float64(controller.Stats().Repositories) }),
		)
	}
	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions",
			Help:      "Number of live sessions.",
		}, func() float64 { return float64(sessions()) }))
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// DeployHook counts deploys.
func (m *Metrics) DeployHook() api.DeployHook {
	return api.DeployHookFunc(func(_ context.Context, event api.DeployEvent) {
		m.Deploys.WithLabelValues(event.Storage, event.Repository, string(event.RepositoryType)).Inc()
	})
}

// WebhookResult records a webhook delivery outcome.
func (m *Metrics) WebhookResult(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.WebhookDeliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRequest(method string, code int) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
