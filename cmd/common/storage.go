/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	memactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/mem"
	mongoactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/mongodb"
	redisactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/redis"
	"github.com/trustbloc/walletcore/pkg/observability/health"
	"github.com/trustbloc/walletcore/pkg/storage/mongodb"
	"github.com/trustbloc/walletcore/pkg/storage/redis"
)

const (
	// DatabaseURLFlagName is the database url.
	DatabaseURLFlagName = "database-url"
	// DatabaseURLFlagUsage describes the usage.
	DatabaseURLFlagUsage = "Database URL of the activity log with credentials if required." +
		" Format must be <driver>:[//]<driver-specific-dsn>." +
		" Examples: 'mem://', 'redis://localhost:6379,localhost:6380'," +
		" 'mongodb://mongodb.example.com:27017'." +
		" Supported drivers are [mem, redis, mongodb]. Defaults to mem." +
		" Alternatively, this can be set with the following environment variable: " + DatabaseURLEnvKey
	// DatabaseURLEnvKey is the database url.
	DatabaseURLEnvKey = "DATABASE_URL"

	// DatabaseTimeoutFlagName is the database timeout.
	DatabaseTimeoutFlagName = "database-timeout"
	// DatabaseTimeoutFlagUsage describes the usage.
	DatabaseTimeoutFlagUsage = "Total time in seconds to wait until the datasource is available before giving up." +
		" Default: 30 seconds." +
		" Alternatively, this can be set with the following environment variable: " + DatabaseTimeoutEnvKey
	// DatabaseTimeoutEnvKey is the database timeout.
	DatabaseTimeoutEnvKey = "DATABASE_TIMEOUT"

	// DatabasePrefixFlagName is the storage prefix.
	DatabasePrefixFlagName = "database-prefix"
	// DatabasePrefixEnvKey is the storage prefix.
	DatabasePrefixEnvKey = "DATABASE_PREFIX"
	// DatabasePrefixFlagUsage describes the usage.
	DatabasePrefixFlagUsage = "An optional prefix of the activity log. For MongoDB it is the database name," +
		" for redis it prefixes the list key. " +
		"Alternatively, this can be set with the following environment variable: " + DatabasePrefixEnvKey

	// DatabaseTimeoutDefault is the default storage timeout.
	DatabaseTimeoutDefault = 30

	defaultDatabasePrefix = "walletcore"
	memDriver             = "mem"
	redisDriver           = "redis"
	mongoDBDriver         = "mongodb"
)

// DBParameters holds database configuration.
type DBParameters struct {
	URL     string
	Prefix  string
	Timeout uint64
}

// ActivityStore is the activity log a wallet service records activities in.
type ActivityStore struct {
	Logger activitylogger.Logger
	// Health lists the backend clients whose availability is reported by /healthcheck.
	Health *health.Config
	close  func() error
}

// Close disconnects the backend.
func (s *ActivityStore) Close() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// Flags registers common command flags.
func Flags(cmd *cobra.Command) {
	cmd.Flags().StringP(DatabaseURLFlagName, "", "", DatabaseURLFlagUsage)
	cmd.Flags().StringP(DatabasePrefixFlagName, "", "", DatabasePrefixFlagUsage)
	cmd.Flags().StringP(DatabaseTimeoutFlagName, "", "", DatabaseTimeoutFlagUsage)
}

// DBParams fetches the DB parameters configured for this command.
func DBParams(cmd *cobra.Command) (*DBParameters, error) {
	var err error

	params := &DBParameters{}

	params.URL = cmdutils.GetUserSetOptionalVarFromString(cmd, DatabaseURLFlagName, DatabaseURLEnvKey)
	if params.URL == "" {
		params.URL = memDriver + "://"
	}

	params.Prefix = cmdutils.GetUserSetOptionalVarFromString(cmd, DatabasePrefixFlagName, DatabasePrefixEnvKey)
	if params.Prefix == "" {
		params.Prefix = defaultDatabasePrefix
	}

	timeout := cmdutils.GetUserSetOptionalVarFromString(cmd, DatabaseTimeoutFlagName, DatabaseTimeoutEnvKey)
	if timeout == "" {
		timeout = strconv.Itoa(DatabaseTimeoutDefault)
	}

	params.Timeout, err = strconv.ParseUint(timeout, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dbTimeout %s: %w", timeout, err)
	}

	return params, nil
}

// InitActivityStore connects to the activity log backend named by the database URL. Connection
// attempts are retried once a second until the configured timeout elapses.
func InitActivityStore(
	ctx context.Context,
	params *DBParameters,
	tracerProvider trace.TracerProvider,
	logger *log.Log,
) (*ActivityStore, error) {
	driver, url, err := parseURL(params.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", params.URL, err)
	}

	var store *ActivityStore

	switch driver {
	case memDriver:
		return &ActivityStore{Logger: memactivitylogger.New(), Health: &health.Config{}}, nil
	case redisDriver:
		err = retry(func() error {
			var openErr error
			store, openErr = openRedis(url, params.Prefix, tracerProvider)
			return openErr
		}, params.Timeout, logger)
	case mongoDBDriver:
		err = retry(func() error {
			var openErr error
			store, openErr = openMongoDB(ctx, url, params.Prefix, tracerProvider)
			return openErr
		}, params.Timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init %s activity log: %w", driver, err)
	}

	logger.Info("Activity log initialized", logfields.WithAdditionalMessage(driver))

	return store, nil
}

func openRedis(addrs, prefix string, tracerProvider trace.TracerProvider) (*ActivityStore, error) {
	var opts []redis.ClientOpt

	if tracerProvider != nil {
		opts = append(opts, redis.WithTraceProvider(tracerProvider))
	}

	client, err := redis.New(strings.Split(addrs, ","), opts...)
	if err != nil {
		return nil, err
	}

	return &ActivityStore{
		Logger: redisactivitylogger.New(client, redisactivitylogger.WithKey(prefix+":activities")),
		Health: &health.Config{RedisClient: client.API()},
		close:  client.Close,
	}, nil
}

func openMongoDB(
	ctx context.Context,
	connString, databaseName string,
	tracerProvider trace.TracerProvider,
) (*ActivityStore, error) {
	var opts []mongodb.ClientOpt

	if tracerProvider != nil {
		opts = append(opts, mongodb.WithTraceProvider(tracerProvider))
	}

	client, err := mongodb.New(connString, databaseName, opts...)
	if err != nil {
		return nil, err
	}

	activityLogger, err := mongoactivitylogger.New(ctx, client)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	return &ActivityStore{
		Logger: activityLogger,
		Health: &health.Config{MongoDBClient: client.API()},
		close:  client.Close,
	}, nil
}

func parseURL(u string) (string, string, error) {
	const urlParts = 2

	parsed := strings.SplitN(u, ":", urlParts)

	if len(parsed) != urlParts {
		return "", "", fmt.Errorf("invalid dbURL %s", u)
	}

	driver := parsed[0]

	if driver == mongoDBDriver {
		// The MongoDB client needs the full connection string (including the driver as part of it).
		return driver, u, nil
	}

	dsn := strings.TrimPrefix(parsed[1], "//")

	return driver, dsn, nil
}

func retry(task func() error, numRetries uint64, logger *log.Log) error {
	const sleep = 1 * time.Second

	return backoff.RetryNotify(
		task,
		backoff.WithMaxRetries(backoff.NewConstantBackOff(sleep), numRetries),
		func(retryErr error, t time.Duration) {
			logger.Warn("Failed to connect to storage, will sleep before trying again.",
				logfields.WithWaitTime(t), log.WithError(retryErr))
		},
	)
}
