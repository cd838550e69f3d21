// Package metrics exposes the engine's Prometheus instrumentation: quiz
// generation, circuit breaker trips, selector fallback depth, and ability
// update latency, declared as package-level promauto counters and
// histograms for just what this engine's operations actually emit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QuizGenerated counts completed quiz generations by phase.
var QuizGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "iidp",
	Subsystem: "quiz",
	Name:      "generated_total",
	Help:      "Total quizzes generated, by learning phase.",
}, []string{"phase"})

// ShortQuizzes counts quizzes that fell short of the fixed quiz length.
var ShortQuizzes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "iidp",
	Subsystem: "quiz",
	Name:      "short_total",
	Help:      "Total quizzes generated with fewer than the target item count.",
})

// CircuitBreakerTrips counts circuit breaker activations.
var CircuitBreakerTrips = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "iidp",
	Subsystem: "breaker",
	Name:      "trips_total",
	Help:      "Total times the circuit breaker triggered a recovery quiz.",
})

// SelectorFallbackDepth records how many relaxation levels the item
// selector needed before finding a candidate (0 = strict cascade succeeded).
var SelectorFallbackDepth = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "iidp",
	Subsystem: "selector",
	Name:      "fallback_depth",
	Help:      "Relaxation levels consumed by the item selector before a candidate was found.",
	Buckets:   []float64{0, 1, 2},
})

// AbilityUpdateDuration times a single update_after_response call.
var AbilityUpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "iidp",
	Subsystem: "ability",
	Name:      "update_duration_seconds",
	Help:      "Wall-clock duration of a single ability update, including its repository round-trip.",
	Buckets:   prometheus.DefBuckets,
})

// PhaseTransitions counts a learner's first exploration→exploitation
// transition; recovery quizzes are not counted here.
var PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "iidp",
	Subsystem: "phase",
	Name:      "transitions_total",
	Help:      "Total learning phase transitions, by resulting phase.",
}, []string{"phase"})
