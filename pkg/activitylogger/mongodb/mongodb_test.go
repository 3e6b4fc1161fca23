/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	dctest "github.com/ory/dockertest/v3"
	dc "github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/activitylogger/mongodb"
	mongodbclient "github.com/trustbloc/walletcore/pkg/storage/mongodb"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	mongoDBConnString  = "mongodb://localhost:27040"
	dockerMongoDBImage = "mongo"
	dockerMongoDBTag   = "4.0.0"
	testDatabaseName   = "walletcore"
)

func TestLogger(t *testing.T) {
	pool, mongoDBResource := startMongoDBContainer(t)
	defer func() {
		require.NoError(t, pool.Purge(mongoDBResource), "failed to purge MongoDB resource")
	}()

	client, err := mongodbclient.New(mongoDBConnString, testDatabaseName,
		mongodbclient.WithTraceProvider(trace.NewNoopTracerProvider()))
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Close())
	}()

	ctx := context.Background()

	t.Run("issuance then presentation", func(t *testing.T) {
		l, err := mongodb.New(ctx, client, mongodb.WithLogName("scenario"))
		require.NoError(t, err)

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
		require.Equal(t, issuance.UnixTimestamp(), a.UnixTimestamp())
		require.Equal(t, "issuer", a.Data.Client)
		require.Equal(t, "UniversityDegreeCredential", a.Data.Params["credentialType"])

		a, err = l.At(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, presentation.ID, a.ID)
		require.Equal(t, activitylogger.StatusSuccess, a.Data.Status)

		for _, index := range []int{2, -1} {
			_, err = l.At(ctx, index)
			require.True(t, walleterror.HasCode(err, walleterror.IndexError), err)
		}
	})

	t.Run("logs are independent", func(t *testing.T) {
		first, err := mongodb.New(ctx, client, mongodb.WithLogName("first"))
		require.NoError(t, err)

		second, err := mongodb.New(ctx, client, mongodb.WithLogName("second"))
		require.NoError(t, err)

		require.NoError(t, first.Log(ctx,
			activitylogger.NewCredentialActivity("issuer", activitylogger.OperationIssuance, nil)))

		length, err := second.Length(ctx)
		require.NoError(t, err)
		require.Zero(t, length)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		const n = 20

		l, err := mongodb.New(ctx, client, mongodb.WithLogName("concurrent"))
		require.NoError(t, err)

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

		for i := 0; i < n; i++ {
			_, err = l.At(ctx, i)
			require.NoError(t, err)
		}
	})

	t.Run("nil activity", func(t *testing.T) {
		l, err := mongodb.New(ctx, client)
		require.NoError(t, err)

		require.True(t, walleterror.HasCode(l.Log(ctx, nil), walleterror.ActivityLogError))
	})
}

func startMongoDBContainer(t *testing.T) (*dctest.Pool, *dctest.Resource) {
	t.Helper()

	pool, err := dctest.NewPool("")
	require.NoError(t, err)

	mongoDBResource, err := pool.RunWithOptions(&dctest.RunOptions{
		Repository: dockerMongoDBImage,
		Tag:        dockerMongoDBTag,
		PortBindings: map[dc.Port][]dc.PortBinding{
			"27017/tcp": {{HostIP: "", HostPort: "27040"}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, backoff.Retry(pingMongoDB, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 30)))

	return pool, mongoDBResource
}

func pingMongoDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoDBConnString))
	if err != nil {
		return err
	}

	defer mongoClient.Disconnect(context.Background()) //nolint:errcheck

	return mongoClient.Ping(ctx, nil)
}
