/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	dctest "github.com/ory/dockertest/v3"
	dc "github.com/ory/dockertest/v3/docker"
	redisapi "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/activitylogger/redis"
	redisclient "github.com/trustbloc/walletcore/pkg/storage/redis"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	redisConnString  = "localhost:6386"
	dockerRedisImage = "redis"
	dockerRedisTag   = "alpine3.17"
)

func TestLogger(t *testing.T) {
	pool, redisResource := startRedisContainer(t)
	defer func() {
		require.NoError(t, pool.Purge(redisResource), "failed to purge Redis resource")
	}()

	client, err := redisclient.New([]string{redisConnString},
		redisclient.WithTraceProvider(trace.NewNoopTracerProvider()))
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Close())
	}()

	ctx := context.Background()

	t.Run("issuance then presentation", func(t *testing.T) {
		l := redis.New(client, redis.WithKey("scenario"))

		issuance := activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance,
			map[string]interface{}{"credentialType": "UniversityDegreeCredential"})
		presentation := activitylogger.NewCredentialActivity("verifier", activitylogger.OperationPresentation, nil)

		require.NoError(t, l.Log(ctx, issuance))
		require.NoError(t, l.Log(ctx, presentation))

		length, err := l.Length(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, length)

		a, err := l.At(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, issuance.ID, a.ID)
		require.Equal(t, "UniversityDegreeCredential", a.Data.Params["credentialType"])

		a, err = l.At(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, presentation.ID, a.ID)
		require.Equal(t, activitylogger.OperationPresentation, a.Data.Operation)

		for _, index := range []int{2, -1} {
			_, err = l.At(ctx, index)
			require.True(t, walleterror.HasCode(err, walleterror.IndexError), err)
		}
	})

	t.Run("concurrent appends", func(t *testing.T) {
		const n = 20

		l := redis.New(client, redis.WithKey("concurrent"))

		var wg sync.WaitGroup

		for i := 0; i < n; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				require.NoError(t, l.Log(ctx, activitylogger.NewCredentialActivity(
					fmt.Sprintf("client-%d", i), activitylogger.OperationIssuance, nil)))
			}(i)
		}

		wg.Wait()

		length, err := l.Length(ctx)
		require.NoError(t, err)
		require.Equal(t, n, length)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		l := redis.New(client, redis.WithKey("corrupt"))

		require.NoError(t, client.API().RPush(ctx, "corrupt", "not json").Err())

		_, err := l.At(ctx, 0)
		require.True(t, walleterror.HasCode(err, walleterror.ActivityLogError), err)
	})

	t.Run("closed client", func(t *testing.T) {
		closed, err := redisclient.New([]string{redisConnString})
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		l := redis.New(closed)

		err = l.Log(ctx, activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance, nil))
		require.True(t, walleterror.HasCode(err, walleterror.ActivityLogError), err)

		_, err = l.Length(ctx)
		require.True(t, walleterror.HasCode(err, walleterror.ActivityLogError), err)
	})
}

func startRedisContainer(t *testing.T) (*dctest.Pool, *dctest.Resource) {
	t.Helper()

	pool, err := dctest.NewPool("")
	require.NoError(t, err)

	redisResource, err := pool.RunWithOptions(&dctest.RunOptions{
		Repository: dockerRedisImage,
		Tag:        dockerRedisTag,
		PortBindings: map[dc.Port][]dc.PortBinding{
			"6379/tcp": {{HostIP: "", HostPort: "6386"}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, backoff.Retry(pingRedis, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 30)))

	return pool, redisResource
}

func pingRedis() error {
	rdb := redisapi.NewClient(&redisapi.Options{Addr: redisConnString})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return rdb.Ping(ctx).Err()
}
