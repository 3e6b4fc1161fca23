/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
)

var logger = log.New("metrics-provider")

const (
	subsystem           = "operation"
	eventDurationMetric = "event_seconds"
	eventCountMetric    = "events_total"

	labelEvent  = "event"
	labelParent = "parent_event"
)

// MetricsLogger records wallet metrics events as Prometheus metrics.
type MetricsLogger struct {
	durations *prometheus.HistogramVec
	events    *prometheus.CounterVec
}

// NewMetricsLogger creates the metrics and registers them with the given registerer.
// If a collector with the same description is already registered, the existing one is reused.
func NewMetricsLogger(registerer prometheus.Registerer) (*MetricsLogger, error) {
	durations, err := register(registerer, newHistogramVec(
		subsystem, eventDurationMetric,
		"The time (in seconds) it takes to complete a wallet operation step.",
		[]string{labelEvent, labelParent},
	))
	if err != nil {
		return nil, err
	}

	events, err := register(registerer, newCounterVec(
		subsystem, eventCountMetric,
		"The number of completed wallet operation steps.",
		[]string{labelEvent, labelParent},
	))
	if err != nil {
		return nil, err
	}

	return &MetricsLogger{
		durations: durations,
		events:    events,
	}, nil
}

// Log records the event.
func (m *MetricsLogger) Log(event *metrics.Event) error {
	if event == nil {
		return errors.New("metrics event must be provided")
	}

	m.durations.WithLabelValues(event.Event, event.ParentEvent).Observe(event.Duration.Seconds())
	m.events.WithLabelValues(event.Event, event.ParentEvent).Inc()

	logger.Debug("Metrics event", logfields.WithEvent(event), log.WithDuration(event.Duration))

	return nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, c T) (T, error) {
	if err := registerer.Register(c); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		var zero T

		return zero, fmt.Errorf("register metric: %w", err)
	}

	return c, nil
}

func newCounterVec(subsystem, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func newHistogramVec(subsystem, name, help string, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}
