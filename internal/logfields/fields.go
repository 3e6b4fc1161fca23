/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logfields

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log Fields.
const (
	FieldAdditionalMessage = "additionalMessage"
	FieldActivityID        = "activityID"
	FieldClientID          = "clientID"
	FieldCredentialID      = "credentialID"
	FieldDID               = "did"
	FieldDIDMethod         = "didMethod"
	FieldEvent             = "event"
	FieldGrantType         = "grantType"
	FieldIssuerURI         = "issuerURI"
	FieldOperation         = "operation"
	FieldPresDefID         = "presDefID"
	FieldRequestURI        = "requestURI"
	FieldSessionID         = "sessionID"
	FieldStatusListURL     = "statusListURL"
	FieldTotalCredentials  = "totalCredentials"
	FieldUserLogLevel      = "userLogLevel"
	FieldVPToken           = "vpToken"
	FieldWaitTime          = "waitTime"
)

// WithAdditionalMessage sets the AdditionalMessage field.
func WithAdditionalMessage(value string) zap.Field {
	return zap.Any(FieldAdditionalMessage, value)
}

// WithActivityID sets the ActivityID field.
func WithActivityID(activityID string) zap.Field {
	return zap.String(FieldActivityID, activityID)
}

// WithClientID sets the ClientID field.
func WithClientID(clientID string) zap.Field {
	return zap.String(FieldClientID, clientID)
}

// WithCredentialID sets the CredentialID field.
func WithCredentialID(credentialID string) zap.Field {
	return zap.String(FieldCredentialID, credentialID)
}

// WithDID sets the DID field.
func WithDID(did string) zap.Field {
	return zap.String(FieldDID, did)
}

// WithDIDMethod sets the DIDMethod field.
func WithDIDMethod(method string) zap.Field {
	return zap.String(FieldDIDMethod, method)
}

// WithEvent sets the Event field.
func WithEvent(event interface{}) zap.Field {
	return zap.Inline(NewObjectMarshaller(FieldEvent, event))
}

// WithGrantType sets the GrantType field.
func WithGrantType(grantType string) zap.Field {
	return zap.String(FieldGrantType, grantType)
}

// WithIssuerURI sets the IssuerURI field.
func WithIssuerURI(issuerURI string) zap.Field {
	return zap.String(FieldIssuerURI, issuerURI)
}

// WithOperation sets the Operation field.
func WithOperation(operation string) zap.Field {
	return zap.String(FieldOperation, operation)
}

// WithPresDefID sets the PresDefID (presentation definition ID) field.
func WithPresDefID(presDefID string) zap.Field {
	return zap.String(FieldPresDefID, presDefID)
}

// WithRequestURI sets the RequestURI field.
func WithRequestURI(requestURI string) zap.Field {
	return zap.String(FieldRequestURI, requestURI)
}

// WithSessionID sets the SessionID field.
func WithSessionID(sessionID string) zap.Field {
	return zap.String(FieldSessionID, sessionID)
}

// WithStatusListURL sets the StatusListURL field.
func WithStatusListURL(statusListURL string) zap.Field {
	return zap.String(FieldStatusListURL, statusListURL)
}

// WithTotalCredentials sets the TotalCredentials field.
func WithTotalCredentials(total int) zap.Field {
	return zap.Int(FieldTotalCredentials, total)
}

// WithUserLogLevel sets the UserLogLevel field.
func WithUserLogLevel(logLevel string) zap.Field {
	return zap.String(FieldUserLogLevel, logLevel)
}

// WithVPToken sets the vp token field.
func WithVPToken(vpToken string) zap.Field {
	return zap.String(FieldVPToken, vpToken)
}

// WithWaitTime sets the WaitTime field.
func WithWaitTime(waitTime time.Duration) zap.Field {
	return zap.Duration(FieldWaitTime, waitTime)
}

// ObjectMarshaller uses reflection to marshal an object's fields.
type ObjectMarshaller struct {
	key string
	obj interface{}
}

// NewObjectMarshaller returns a new ObjectMarshaller.
func NewObjectMarshaller(key string, obj interface{}) *ObjectMarshaller {
	return &ObjectMarshaller{key: key, obj: obj}
}

// MarshalLogObject marshals the object's fields.
func (m *ObjectMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	return e.AddReflected(m.key, m.obj)
}
