/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mongodb stores the activity log in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/storage/mongodb"
)

const (
	activitiesCollection = "activities"
	countersCollection   = "activity_counters"
	seqFieldName         = "seq"
	defaultLogName       = "default"
)

var logger = log.New("activitylogger-mongodb")

type mongoDocument struct {
	Log       string                 `bson:"log"`
	Seq       int64                  `bson:"seq"`
	ID        string                 `bson:"id"`
	Type      string                 `bson:"type"`
	Timestamp time.Time              `bson:"timestamp"`
	Client    string                 `bson:"client"`
	Operation string                 `bson:"operation"`
	Status    string                 `bson:"status"`
	Params    map[string]interface{} `bson:"params,omitempty"`
}

type counterDocument struct {
	Seq int64 `bson:"seq"`
}

// Logger appends activities to a MongoDB collection. Each append takes the next sequence number from a
// counter document with an atomic $inc, which orders concurrent appends across wallet instances.
type Logger struct {
	mongoClient *mongodb.Client
	name        string
}

// Opt configures the Logger.
type Opt func(l *Logger)

// WithLogName selects the log within the collection. Wallets sharing a name share a log.
func WithLogName(name string) Opt {
	return func(l *Logger) {
		l.name = name
	}
}

// New creates the Logger and ensures the (log, seq) index and the log counter exist.
func New(ctx context.Context, mongoClient *mongodb.Client, opts ...Opt) (*Logger, error) {
	l := &Logger{
		mongoClient: mongoClient,
		name:        defaultLogName,
	}

	for _, opt := range opts {
		opt(l)
	}

	ctx, cancel := mongoClient.ContextWithTimeout(ctx)
	defer cancel()

	_, err := mongoClient.Database().Collection(activitiesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "log", Value: 1}, {Key: seqFieldName, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create activity index: %w", err)
	}

	// Concurrent upserts of a missing counter can race on _id, so the counter is created up front.
	_, err = mongoClient.Database().Collection(countersCollection).UpdateOne(ctx,
		bson.M{"_id": l.name},
		bson.M{"$setOnInsert": bson.M{seqFieldName: int64(0)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create activity counter: %w", err)
	}

	return l, nil
}

func (l *Logger) Log(ctx context.Context, activity *activitylogger.Activity) error {
	if activity == nil {
		return activitylogger.ErrBackend("log", errors.New("activity is nil"))
	}

	ctx, cancel := l.mongoClient.ContextWithTimeout(ctx)
	defer cancel()

	var counter counterDocument

	err := l.mongoClient.Database().Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": l.name},
		bson.M{"$inc": bson.M{seqFieldName: 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return activitylogger.ErrBackend("log", fmt.Errorf("next sequence number: %w", err))
	}

	doc := &mongoDocument{
		Log:       l.name,
		Seq:       counter.Seq - 1,
		ID:        activity.ID.String(),
		Type:      activity.Type,
		Timestamp: activity.Time,
		Client:    activity.Data.Client,
		Operation: activity.Data.Operation,
		Status:    activity.Data.Status,
		Params:    activity.Data.Params,
	}

	if _, err = l.mongoClient.Database().Collection(activitiesCollection).InsertOne(ctx, doc); err != nil {
		return activitylogger.ErrBackend("log", fmt.Errorf("insert activity: %w", err))
	}

	logger.Debugc(ctx, "Activity logged", logfields.WithActivityID(doc.ID),
		logfields.WithOperation(doc.Operation))

	return nil
}

func (l *Logger) Length(ctx context.Context) (int, error) {
	ctx, cancel := l.mongoClient.ContextWithTimeout(ctx)
	defer cancel()

	count, err := l.mongoClient.Database().Collection(activitiesCollection).CountDocuments(ctx,
		bson.M{"log": l.name})
	if err != nil {
		return 0, activitylogger.ErrBackend("length", fmt.Errorf("count activities: %w", err))
	}

	return int(count), nil
}

func (l *Logger) At(ctx context.Context, index int) (*activitylogger.Activity, error) {
	if index < 0 {
		return nil, l.outOfBounds(ctx, index)
	}

	queryCtx, cancel := l.mongoClient.ContextWithTimeout(ctx)
	defer cancel()

	var doc mongoDocument

	err := l.mongoClient.Database().Collection(activitiesCollection).FindOne(queryCtx,
		bson.M{"log": l.name, seqFieldName: index}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, l.outOfBounds(ctx, index)
		}

		return nil, activitylogger.ErrBackend("at", fmt.Errorf("find activity: %w", err))
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, activitylogger.ErrBackend("at", fmt.Errorf("parse activity id: %w", err))
	}

	return &activitylogger.Activity{
		ID:   id,
		Type: doc.Type,
		Time: doc.Timestamp.UTC(),
		Data: activitylogger.Data{
			Client:    doc.Client,
			Operation: doc.Operation,
			Status:    doc.Status,
			Params:    doc.Params,
		},
	}, nil
}

func (l *Logger) outOfBounds(ctx context.Context, index int) error {
	length, err := l.Length(ctx)
	if err != nil {
		return err
	}

	return activitylogger.ErrIndexOutOfBounds(index, length)
}
