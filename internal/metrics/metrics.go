// Package metrics exposes the service's prometheus collector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Collector struct {
	reg *prometheus.Registry

	TapsTotal         *prometheus.CounterVec // outcome label
	FaresChargedCents prometheus.Counter
	ForcedClosures    prometheus.Counter
	ActiveTrips       prometheus.Gauge
	SessionsRunning   prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttle_taps_total",
			Help: "Tap events by outcome.",
		}, []string{"outcome"}),
		FaresChargedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_fares_charged_cents_total",
			Help: "Total fare amount debited, in cents.",
		}),
		ForcedClosures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_forced_closures_total",
			Help: "Trips force-closed at max fare.",
		}),
		ActiveTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_active_trips",
			Help: "Trips currently in the active state.",
		}),
		SessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_sessions_running",
			Help: "Driving sessions currently running.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.TapsTotal, c.FaresChargedCents, c.ForcedClosures,
		c.ActiveTrips, c.SessionsRunning,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
