package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

const subsystem = "sunpos"

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: subsystem,
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0},
		},
		[]string{"verb", "path", "code"},
	)

	azimuth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "azimuth_degrees",
		Subsystem: subsystem,
		Help:      "Sun azimuth, clockwise from north.",
	})
	elevation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "elevation_degrees",
		Subsystem: subsystem,
		Help:      "Sun elevation above the horizon.",
	})
	zenith = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "zenith_degrees",
		Subsystem: subsystem,
		Help:      "Sun zenith angle.",
	})
	moonPhase = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "moon_phase",
		Subsystem: subsystem,
		Help:      "Moon age on a 0-28 scale; 14 is full moon.",
	})
	aboveHorizon = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "above_horizon",
		Subsystem: subsystem,
		Help:      "1 between sunrise and sunset.",
	})
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "transitions_total",
			Subsystem: subsystem,
			Help:      "Sunrise and sunset notifications sent.",
		},
		[]string{"kind"},
	)
	astronomyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "astronomy_errors_total",
		Subsystem: subsystem,
		Help:      "Refreshes where sunrise and sunset could not be computed.",
	})
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		azimuth,
		elevation,
		zenith,
		moonPhase,
		aboveHorizon,
		transitions,
		astronomyErrors,
	)
}

// ObserveReport exports the values of one refresh.
func ObserveReport(r tracker.Report) {
	azimuth.Set(r.Azimuth)
	elevation.Set(r.Elevation)
	zenith.Set(r.Zenith)
	moonPhase.Set(r.MoonPhase)
	if r.AboveHorizon {
		aboveHorizon.Set(1)
	} else {
		aboveHorizon.Set(0)
	}
	if r.Transition != tracker.None {
		transitions.WithLabelValues(r.Transition.String()).Inc()
	}
	if r.Err != nil {
		astronomyErrors.Inc()
	}
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		verb := r.Method
		path := ""
		if r.URL != nil {
			path = r.URL.Path
		}

		// Any panics in next are reported as 500 errors and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Since(t).Seconds())
				panic(err)
			}
			ObserveRequestLatency(verb, path, strconv.Itoa(rec.code), time.Since(t).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}
