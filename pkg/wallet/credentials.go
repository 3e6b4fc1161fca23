/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/did/wellknown"
)

// GetCredID returns the ID of the first credential.
func (w *Wallet) GetCredID(ctx context.Context, req *CredentialsRequest) (*CredIDResponse, error) {
	vc, err := firstCredential(ctx, "getCredID", req.Credentials)
	if err != nil {
		return nil, err
	}

	return &CredIDResponse{CredentialID: vc.ID}, nil
}

// GetIssuerID returns the issuer of the first credential.
func (w *Wallet) GetIssuerID(ctx context.Context, req *CredentialsRequest) (*IssuerIDResponse, error) {
	vc, err := firstCredential(ctx, "getIssuerID", req.Credentials)
	if err != nil {
		return nil, err
	}

	return &IssuerIDResponse{IssuerID: vc.IssuerID}, nil
}

// WellKnownDIDConfig checks the linked domains of a DID. Failures yield a negative result.
func (w *Wallet) WellKnownDIDConfig(ctx context.Context, req *WellKnownDIDConfigRequest) (*WellKnownDIDConfigResponse, error) {
	if req.IssuerID == "" {
		return nil, invalidArgument("wellKnownDidConfig", "no issuer ID provided")
	}

	result := wellknown.ValidateLinkedDomains(ctx, req.IssuerID, w.didResolver, w.httpClient)

	return &result, nil
}

// CredentialStatusVerifier verifies the status of every credential. It fails with the error of the
// first credential that is revoked, suspended or expired.
func (w *Wallet) CredentialStatusVerifier(
	ctx context.Context,
	req *CredentialsRequest,
) (*CredentialStatusResponse, error) {
	if len(req.Credentials) == 0 {
		return nil, invalidArgument("credentialStatusVerifier", "no credentials provided")
	}

	credentials, err := parseStored(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	for _, vc := range credentials {
		if err = w.statusVerifier.Verify(ctx, vc); err != nil {
			logger.Debugc(ctx, "Credential status check failed", logfields.WithCredentialID(vc.ID), log.WithError(err))

			return nil, err
		}
	}

	return &CredentialStatusResponse{Verified: true}, nil
}

// ActivityLogger returns every logged activity, oldest first.
func (w *Wallet) ActivityLogger(ctx context.Context) (*ActivitiesResponse, error) {
	length, err := w.activityLogger.Length(ctx)
	if err != nil {
		return nil, err
	}

	activities := make([]string, 0, length)

	for i := 0; i < length; i++ {
		a, atErr := w.activityLogger.At(ctx, i)
		if atErr != nil {
			return nil, atErr
		}

		s, serializeErr := a.Serialize()
		if serializeErr != nil {
			return nil, serializeErr
		}

		activities = append(activities, s)
	}

	return &ActivitiesResponse{Activities: activities}, nil
}

// ParseActivities flattens serialized activities.
func (w *Wallet) ParseActivities(_ context.Context, req *ParseActivitiesRequest) (*ParseActivitiesResponse, error) {
	activities, err := activitylogger.ParseActivities(req.Activities)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ActivitySummary, 0, len(activities))

	for _, a := range activities {
		summaries = append(summaries, &ActivitySummary{
			ID:        a.ID.String(),
			Type:      a.Type,
			Status:    a.Data.Status,
			Client:    a.Data.Client,
			Operation: a.Data.Operation,
			Timestamp: a.UnixTimestamp(),
		})
	}

	return &ParseActivitiesResponse{Activities: summaries}, nil
}

func firstCredential(ctx context.Context, operation string, serialized []string) (*credential.Credential, error) {
	if len(serialized) == 0 {
		return nil, invalidArgument(operation, "no credentials provided")
	}

	return credential.Parse(serialized[0], credential.WithDisabledProofCheck(), credential.WithContext(ctx))
}
