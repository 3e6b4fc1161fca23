/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb_test

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	dctest "github.com/ory/dockertest/v3"
	dc "github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/pkg/storage/mongodb"
)

const (
	mongoDBConnString  = "mongodb://localhost:27039"
	dockerMongoDBImage = "mongo"
	dockerMongoDBTag   = "4.0.0"
	testDatabaseName   = "test_db"
	testTimeout        = 5 * time.Second
)

func TestClient(t *testing.T) {
	pool, mongoDBResource := startMongoDBContainer(t)
	defer func() {
		require.NoError(t, pool.Purge(mongoDBResource), "failed to purge MongoDB resource")
	}()

	t.Run("OK", func(t *testing.T) {
		client, err := mongodb.New(mongoDBConnString, testDatabaseName,
			mongodb.WithTimeout(testTimeout),
			mongodb.WithReadPref(readpref.PrimaryPreferred()),
			mongodb.WithTraceProvider(trace.NewNoopTracerProvider()),
		)
		require.NoError(t, err)
		require.NotNil(t, client)

		require.Equal(t, testDatabaseName, client.Database().Name())
		require.NotNil(t, client.API())

		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
	})

	t.Run("Missing database name", func(t *testing.T) {
		client, err := mongodb.New(mongoDBConnString, "")

		require.Nil(t, client)
		require.ErrorContains(t, err, "database name is required")
	})

	t.Run("Invalid connection string", func(t *testing.T) {
		client, err := mongodb.New("not-a-mongo-url", testDatabaseName)

		require.Nil(t, client)
		require.ErrorContains(t, err, "failed to connect to MongoDB")
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
			"27017/tcp": {{HostIP: "", HostPort: "27039"}},
		},
	})
	require.NoError(t, err)

	require.NoError(t, waitForMongoDBToBeUp())

	return pool, mongoDBResource
}

func waitForMongoDBToBeUp() error {
	return backoff.Retry(pingMongoDB, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 30))
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
