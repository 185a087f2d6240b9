package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines counters for the publishing engine.
type Metrics interface {
	IncChunksUploaded()
	IncCredentialRenewals()
	IncPolls(stage string)
	IncDeployments(status string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncChunksUploaded()     {}
func (Noop) IncCredentialRenewals() {}
func (Noop) IncPolls(string)        {}
func (Noop) IncDeployments(string)  {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	chunksUploaded     prometheus.Counter
	credentialRenewals prometheus.Counter
	polls              *prometheus.CounterVec
	deployments        *prometheus.CounterVec
	once               sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		chunksUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_uploaded_total",
			Help:      "Content blocks uploaded to the storage target",
		}),
		credentialRenewals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_renewals_total",
			Help:      "Storage credential renewals triggered during uploads",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Async processing poll iterations by stage",
		}, []string{"stage"}),
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment units completed by status",
		}, []string{"status"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.chunksUploaded, p.credentialRenewals, p.polls, p.deployments)
	})
}

func (p *Prom) IncChunksUploaded()     { p.chunksUploaded.Inc() }
func (p *Prom) IncCredentialRenewals() { p.credentialRenewals.Inc() }
func (p *Prom) IncPolls(stage string)  { p.polls.WithLabelValues(stage).Inc() }
func (p *Prom) IncDeployments(status string) {
	p.deployments.WithLabelValues(status).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
