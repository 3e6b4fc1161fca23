/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
)

var logger = log.New("metrics")

// Namespace used for all wallet metrics.
const Namespace = "wallet"

// Event is a timed step of a wallet operation. ParentEvent names the enclosing operation, if any.
type Event struct {
	Event       string        `json:"event"`
	ParentEvent string        `json:"parentEvent,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Logger records metrics events.
type Logger interface {
	Log(event *Event) error
}

// Record logs the time elapsed since start under the given event name. Failures to record are
// reported to the module logger only: metrics never fail an operation.
func Record(l Logger, event, parentEvent string, start time.Time) {
	if l == nil {
		return
	}

	err := l.Log(&Event{
		Event:       event,
		ParentEvent: parentEvent,
		Duration:    time.Since(start),
	})
	if err != nil {
		logger.Warn("Failed to log metrics event", log.WithError(err))
	}
}
