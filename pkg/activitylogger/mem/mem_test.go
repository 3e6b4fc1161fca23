/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/activitylogger/mem"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()
	l := mem.New()

	issuance := activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance, nil)
	presentation := activitylogger.NewCredentialActivity("verifier", activitylogger.OperationPresentation, nil)

	require.NoError(t, l.Log(ctx, issuance))
	require.NoError(t, l.Log(ctx, presentation))

	length, err := l.Length(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, length)

	a, err := l.At(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, issuance, a)

	a, err = l.At(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, presentation, a)

	for _, index := range []int{2, -1} {
		_, err = l.At(ctx, index)
		require.True(t, walleterror.HasCode(err, walleterror.IndexError))
	}

	err = l.Log(ctx, nil)
	require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError))
}

func TestLogger_EntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	l := mem.New()

	logged := activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance,
		map[string]interface{}{"subjectIDs": []string{"did:example:alice"}})
	require.NoError(t, l.Log(ctx, logged))

	logged.Data.Client = "changed after logging"
	logged.Data.Params["subjectIDs"].([]string)[0] = "did:example:mallory"

	a, err := l.At(ctx, 0)
	require.NoError(t, err)

	a.Data.Status = "changed by reader"
	a.Data.Params["extra"] = true

	again, err := l.At(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "issuer", again.Data.Client)
	require.Equal(t, activitylogger.StatusSuccess, again.Data.Status)
	require.Equal(t, map[string]interface{}{"subjectIDs": []string{"did:example:alice"}}, again.Data.Params)
}

func TestLogger_Concurrent(t *testing.T) {
	const n = 50

	ctx := context.Background()
	l := mem.New()

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			require.NoError(t, l.Log(ctx,
				activitylogger.NewCredentialActivity(fmt.Sprintf("client-%d", i), activitylogger.OperationIssuance, nil)))
		}(i)
	}

	wg.Wait()

	length, err := l.Length(ctx)
	require.NoError(t, err)
	require.Equal(t, n, length)

	seen := map[string]bool{}

	for i := 0; i < n; i++ {
		a, err := l.At(ctx, i)
		require.NoError(t, err)

		seen[a.Data.Client] = true
	}

	require.Len(t, seen, n)
}
