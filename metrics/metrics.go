// Package metrics records trial timings in a Prometheus registry and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pthlab/threadbench/harness"
)

const namespace = "threadbench"

// Recorder collects per-trial gauges and outcome counters.
type Recorder struct {
	registry *prometheus.Registry

	trialSeconds *prometheus.GaugeVec
	wallSeconds  *prometheus.GaugeVec
	trials       *prometheus.CounterVec
}

// NewRecorder creates a Recorder labelled with the run ID.
func NewRecorder(runID string) *Recorder {
	constLabels := prometheus.Labels{"run_id": runID}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		trialSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "trial_seconds",
			Help:        "Time reported by the collaborator for one trial.",
			ConstLabels: constLabels,
		}, []string{"suite", "threads", "size"}),
		wallSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "trial_wall_seconds",
			Help:        "Wall time of the collaborator process, spawn to exit.",
			ConstLabels: constLabels,
		}, []string{"suite", "threads", "size"}),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "trials_total",
			Help:        "Trials run, by outcome.",
			ConstLabels: constLabels,
		}, []string{"suite", "outcome"}),
	}

	r.registry.MustRegister(r.trialSeconds, r.wallSeconds, r.trials)

	return r
}

// ObserveTrial records one trial.
func (r *Recorder) ObserveTrial(res harness.Result) {
	if res.Failed() {
		r.trials.WithLabelValues(res.Suite, "failed").Inc()

		return
	}

	r.trials.WithLabelValues(res.Suite, "ok").Inc()

	threads := strconv.Itoa(res.Threads)
	size := strconv.FormatInt(res.Size, 10)

	r.trialSeconds.WithLabelValues(res.Suite, threads, size).Set(res.Elapsed.Seconds())
	r.wallSeconds.WithLabelValues(res.Suite, threads, size).Set(res.Wall.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}

	return nil
}
