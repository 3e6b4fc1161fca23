/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package noop

import (
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
)

// Logger discards all metrics events.
type Logger struct{}

// NewLogger returns a metrics logger that does nothing.
func NewLogger() *Logger {
	return &Logger{}
}

func (n *Logger) Log(*metrics.Event) error {
	return nil
}
