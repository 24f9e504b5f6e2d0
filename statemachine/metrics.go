package statemachine

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeebo/xxh3"
)

const instanceHashLength = 8

// Metric definitions with appropriate labels.
var (
	// transitionsTotal tracks committed transitions.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of committed transitions by machine, from_state, event, and to_state",
	}, []string{"machine", "from_state", "event", "to_state", "instance_hash"})

	// rejectionsTotal tracks events that did not fire.
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_rejections_total",
		Help: "Total number of rejected events by machine, state, event, and reason",
	}, []string{"machine", "state", "event", "reason"})

	// actionDuration tracks action execution time.
	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_action_duration_seconds",
		Help:    "Duration of transition actions by machine, event, and outcome",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"machine", "event", "outcome"})
)

// Metric outcome constants.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// sanitizeInstance hashes an instance identifier (typically a user id) so it
// can be used as a label without leaking the raw value.
func sanitizeInstance(instance string) string {
	if instance == "" {
		return "none"
	}

	hashed := strconv.FormatUint(xxh3.HashString(instance), 16)
	for len(hashed) < instanceHashLength {
		hashed = "0" + hashed
	}

	return hashed[:instanceHashLength]
}

func sanitizeMachine(machine string) string {
	if machine == "" {
		return "unknown"
	}

	return machine
}
