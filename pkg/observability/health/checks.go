/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultCheckTimeout = 5 * time.Second

// Config lists the backends whose availability is reported. Nil backends are skipped.
type Config struct {
	RedisClient   redis.UniversalClient
	MongoDBClient *mongo.Client
}

// Get returns the health checks for the configured backends.
func Get(config *Config) []health.Check {
	var checks []health.Check

	if config.RedisClient != nil {
		checks = append(checks, health.Check{
			Name:               "redis",
			Check:              RedisCheck(config.RedisClient),
			MaxTimeInError:     1,
			MaxContiguousFails: 1,
		})
	}

	if config.MongoDBClient != nil {
		checks = append(checks, health.Check{
			Name:               "mongodb",
			Check:              MongoDBCheck(config.MongoDBClient),
			MaxTimeInError:     1,
			MaxContiguousFails: 1,
		})
	}

	return checks
}

// RedisCheck returns a check that pings redis.
func RedisCheck(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}

		return nil
	}
}

// MongoDBCheck returns a check that pings the MongoDB primary.
func MongoDBCheck(client *mongo.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return fmt.Errorf("failed to ping mongodb: %w", err)
		}

		return nil
	}
}

// NewHandler returns the /healthcheck handler for the given checks.
func NewHandler(checks []health.Check) http.Handler {
	opts := []health.CheckerOption{
		health.WithTimeout(defaultCheckTimeout),
		health.WithCacheDuration(time.Second),
	}

	for _, c := range checks {
		opts = append(opts, health.WithCheck(c))
	}

	return health.NewHandler(health.NewChecker(opts...))
}
