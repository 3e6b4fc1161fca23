/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsPath = "/metrics"

// Handler serves the wallet metrics gathered by a registry.
type Handler struct {
	path    string
	handler http.Handler
}

// HandlerOpt configures the metrics handler.
type HandlerOpt func(h *Handler)

// WithPath serves the metrics on the given path instead of /metrics.
func WithPath(path string) HandlerOpt {
	return func(h *Handler) {
		h.path = path
	}
}

// NewHandler returns the metrics endpoint for the gatherer. Metrics that fail to collect are skipped
// so one broken collector does not hide the others.
func NewHandler(gatherer prometheus.Gatherer, opts ...HandlerOpt) *Handler {
	h := &Handler{path: defaultMetricsPath}

	for _, opt := range opts {
		opt(h)
	}

	h.handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})

	return h
}

func (h *Handler) Path() string {
	return h.path
}

func (h *Handler) Method() string {
	return http.MethodGet
}

func (h *Handler) Handler() http.Handler {
	return h.handler
}
