/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package activitylogger defines the append-only log of wallet activities.
package activitylogger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	// TypeCredentialActivity is the type of activities logged by issuance and presentation flows.
	TypeCredentialActivity = "credential-activity"

	StatusSuccess = "success"

	OperationIssuance     = "oidc-issuance"
	OperationPresentation = "oidc-presentation"
)

// Activity is a single log record. Activities are never mutated once logged.
type Activity struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"timestamp"`
	Data Data      `json:"data"`
}

// Data describes what happened.
type Data struct {
	Client    string                 `json:"client"`
	Operation string                 `json:"operation"`
	Status    string                 `json:"status"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// NewCredentialActivity creates a successful credential activity stamped with the current time.
func NewCredentialActivity(client, operation string, params map[string]interface{}) *Activity {
	return &Activity{
		ID:   uuid.New(),
		Type: TypeCredentialActivity,
		Time: time.Now().UTC(),
		Data: Data{
			Client:    client,
			Operation: operation,
			Status:    StatusSuccess,
			Params:    params,
		},
	}
}

// UnixTimestamp returns the activity time in seconds since the epoch.
func (a *Activity) UnixTimestamp() int64 {
	return a.Time.Unix()
}

// Clone returns a copy of the activity that shares no params with it.
func (a *Activity) Clone() *Activity {
	c := *a

	if a.Data.Params != nil {
		c.Data.Params = lo.MapValues(a.Data.Params, func(v interface{}, _ string) interface{} {
			return cloneParam(v)
		})
	}

	return &c
}

func cloneParam(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		return lo.Map(t, func(item interface{}, _ int) interface{} { return cloneParam(item) })
	case map[string]interface{}:
		return lo.MapValues(t, func(item interface{}, _ string) interface{} { return cloneParam(item) })
	default:
		return v
	}
}

// Serialize returns the JSON form of the activity.
func (a *Activity) Serialize() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal activity: %w", err)
	}

	return string(b), nil
}

// ParseActivity parses an activity produced by Serialize.
func ParseActivity(serialized string) (*Activity, error) {
	var a Activity

	if err := json.Unmarshal([]byte(serialized), &a); err != nil {
		return nil, walleterror.New(walleterror.InvalidArgumentError, fmt.Errorf("parse activity: %w", err)).
			WithComponent(walleterror.ActivityLogComponent)
	}

	if a.ID == uuid.Nil || a.Type == "" {
		return nil, walleterror.Newf(walleterror.InvalidArgumentError, "activity has no id or type").
			WithComponent(walleterror.ActivityLogComponent)
	}

	return &a, nil
}

// ParseActivities parses a list of serialized activities, keeping their order.
func ParseActivities(serialized []string) ([]*Activity, error) {
	activities := make([]*Activity, 0, len(serialized))

	for i, s := range serialized {
		a, err := ParseActivity(s)
		if err != nil {
			return nil, fmt.Errorf("activity at index %d: %w", i, err)
		}

		activities = append(activities, a)
	}

	return activities, nil
}

// Logger is an append-only activity log. Appends are totally ordered: At(i) returns the i-th appended
// activity once Log has returned.
type Logger interface {
	Log(ctx context.Context, activity *Activity) error
	Length(ctx context.Context) (int, error)
	At(ctx context.Context, index int) (*Activity, error)
}

// ErrIndexOutOfBounds returns the error reported by At for an index outside [0, length).
func ErrIndexOutOfBounds(index, length int) error {
	return walleterror.Newf(walleterror.IndexError, "index %d out of bounds for activity log of length %d",
		index, length).WithComponent(walleterror.ActivityLogComponent).WithOperation("at")
}

// ErrBackend wraps a storage failure of a persistent activity log.
func ErrBackend(operation string, err error) error {
	return walleterror.New(walleterror.ActivityLogError, err).
		WithComponent(walleterror.ActivityLogComponent).WithOperation(operation)
}
