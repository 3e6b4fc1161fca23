/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package noop is an activity log that discards every activity.
package noop

import (
	"context"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
)

type Logger struct{}

func New() *Logger {
	return &Logger{}
}

func (*Logger) Log(context.Context, *activitylogger.Activity) error {
	return nil
}

func (*Logger) Length(context.Context) (int, error) {
	return 0, nil
}

func (*Logger) At(_ context.Context, index int) (*activitylogger.Activity, error) {
	return nil, activitylogger.ErrIndexOutOfBounds(index, 0)
}
