/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package redis stores the activity log in a redis list.
package redis

import (
	"context"
	"errors"
	"fmt"

	redisapi "github.com/redis/go-redis/v9"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/storage/redis"
)

const defaultKey = "walletcore:activities"

var logger = log.New("activitylogger-redis")

// Logger appends activities to a single redis list. RPUSH is atomic, so concurrent appends from any
// number of wallet instances are totally ordered.
type Logger struct {
	redisClient *redis.Client
	key         string
}

// Opt configures the Logger.
type Opt func(l *Logger)

// WithKey sets the list key. Wallets sharing a key share a log.
func WithKey(key string) Opt {
	return func(l *Logger) {
		l.key = key
	}
}

func New(redisClient *redis.Client, opts ...Opt) *Logger {
	l := &Logger{
		redisClient: redisClient,
		key:         defaultKey,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Logger) Log(ctx context.Context, activity *activitylogger.Activity) error {
	data, err := activity.Serialize()
	if err != nil {
		return activitylogger.ErrBackend("log", err)
	}

	ctx, cancel := l.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	if err = l.redisClient.API().RPush(ctx, l.key, data).Err(); err != nil {
		return activitylogger.ErrBackend("log", fmt.Errorf("rpush: %w", err))
	}

	logger.Debugc(ctx, "Activity logged", logfields.WithActivityID(activity.ID.String()),
		logfields.WithOperation(activity.Data.Operation))

	return nil
}

func (l *Logger) Length(ctx context.Context) (int, error) {
	ctx, cancel := l.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	length, err := l.redisClient.API().LLen(ctx, l.key).Result()
	if err != nil {
		return 0, activitylogger.ErrBackend("length", fmt.Errorf("llen: %w", err))
	}

	return int(length), nil
}

func (l *Logger) At(ctx context.Context, index int) (*activitylogger.Activity, error) {
	// LINDEX counts negative indexes from the tail.
	if index < 0 {
		length, err := l.Length(ctx)
		if err != nil {
			return nil, err
		}

		return nil, activitylogger.ErrIndexOutOfBounds(index, length)
	}

	ctx, cancel := l.redisClient.ContextWithTimeout(ctx)
	defer cancel()

	data, err := l.redisClient.API().LIndex(ctx, l.key, int64(index)).Result()
	if err != nil {
		if errors.Is(err, redisapi.Nil) {
			length, lenErr := l.Length(ctx)
			if lenErr != nil {
				return nil, lenErr
			}

			return nil, activitylogger.ErrIndexOutOfBounds(index, length)
		}

		return nil, activitylogger.ErrBackend("at", fmt.Errorf("lindex: %w", err))
	}

	activity, err := activitylogger.ParseActivity(data)
	if err != nil {
		return nil, activitylogger.ErrBackend("at", err)
	}

	return activity, nil
}
