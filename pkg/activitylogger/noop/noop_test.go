/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package noop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/activitylogger/noop"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()
	l := noop.New()

	require.NoError(t, l.Log(ctx, activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance, nil)))

	length, err := l.Length(ctx)
	require.NoError(t, err)
	require.Zero(t, length)

	_, err = l.At(ctx, 0)
	require.True(t, walleterror.HasCode(err, walleterror.IndexError))
}
