package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the host application's HTTP and inventory metrics.
type Metrics struct {
	Requests      *prometheus.CounterVec
	AssetsCreated prometheus.Counter
}

// New registers the host metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditkit_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		AssetsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditkit_inventory_assets_created_total",
			Help: "Total number of assets registered",
		}),
	}
}

func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) IncrementAssetsCreated() {
	if m == nil {
		return
	}
	m.AssetsCreated.Inc()
}
