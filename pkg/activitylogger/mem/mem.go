/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem is an in-memory activity log.
package mem

import (
	"context"
	"errors"
	"sync"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// Logger keeps activities in memory. Log and At copy the activity so a logged entry cannot change.
type Logger struct {
	mutex      sync.RWMutex
	activities []*activitylogger.Activity
}

// New returns an empty log.
func New() *Logger {
	return &Logger{}
}

func (l *Logger) Log(_ context.Context, activity *activitylogger.Activity) error {
	if activity == nil {
		return walleterror.New(walleterror.InvalidArgumentError, errors.New("activity is nil")).
			WithComponent(walleterror.ActivityLogComponent)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.activities = append(l.activities, activity.Clone())

	return nil
}

func (l *Logger) Length(context.Context) (int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return len(l.activities), nil
}

func (l *Logger) At(_ context.Context, index int) (*activitylogger.Activity, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if index < 0 || index >= len(l.activities) {
		return nil, activitylogger.ErrIndexOutOfBounds(index, len(l.activities))
	}

	return l.activities[index].Clone(), nil
}
