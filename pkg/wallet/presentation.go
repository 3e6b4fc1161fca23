/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/openid4vp"
	"github.com/trustbloc/walletcore/pkg/presexch"
)

// ProcessAuthorizationRequest starts a presentation session for an authorization request. When stored
// credentials are given they are matched right away.
func (w *Wallet) ProcessAuthorizationRequest(
	ctx context.Context,
	req *ProcessAuthorizationRequestRequest,
) (*ProcessAuthorizationRequestResponse, error) {
	authorizationRequest, err := inputText("processAuthorizationRequest", req.AuthorizationRequest, req.QRCode)
	if err != nil {
		return nil, err
	}

	interaction, err := openid4vp.NewInteraction(&openid4vp.ClientConfig{
		DIDResolver:          w.didResolver,
		KeyManager:           w.kms,
		ActivityLogger:       w.activityLogger,
		MetricsLogger:        w.metricsLogger,
		HTTPClient:           w.cfg.HTTPClient,
		HTTPTimeout:          w.cfg.HTTPTimeout,
		AdditionalHeaders:    w.cfg.AdditionalHeaders,
		DisableOpenTelemetry: w.cfg.DisableOpenTelemetry,
	})
	if err != nil {
		return nil, err
	}

	if err = interaction.Start(ctx, authorizationRequest); err != nil {
		return nil, err
	}

	resp := &ProcessAuthorizationRequestResponse{}

	if len(req.StoredCredentials) > 0 {
		stored, parseErr := parseStored(ctx, req.StoredCredentials)
		if parseErr != nil {
			return nil, parseErr
		}

		requirements, matchErr := interaction.GetMatchedSubmissionRequirements(stored)
		if matchErr != nil {
			return nil, matchErr
		}

		resp.MatchedCredentials = matchedCredentials(stored, requirements)
	}

	resp.SessionID, err = w.sessions.add(interaction)
	if err != nil {
		return nil, err
	}

	logger.Debugc(ctx, "Presentation session started", logfields.WithSessionID(resp.SessionID))

	return resp, nil
}

// GetMatchedSubmissionRequirements matches credentials against the presentation definition of a session.
func (w *Wallet) GetMatchedSubmissionRequirements(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	interaction, err := w.sessions.presentation(req.SessionID)
	if err != nil {
		return nil, err
	}

	credentials, err := parseStored(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	requirements, err := interaction.GetMatchedSubmissionRequirements(credentials)
	if err != nil {
		return nil, err
	}

	return &MatchResponse{Requirements: toSubmissionRequirements(requirements)}, nil
}

// VerifierDisplayData describes the verifier of a presentation session.
func (w *Wallet) VerifierDisplayData(_ context.Context, req *SessionRequest) (*VerifierDisplayDataResponse, error) {
	interaction, err := w.sessions.presentation(req.SessionID)
	if err != nil {
		return nil, err
	}

	d, err := interaction.VerifierDisplayData()
	if err != nil {
		return nil, err
	}

	return &VerifierDisplayDataResponse{DID: d.DID, Name: d.Name, Purpose: d.Purpose, LogoURI: d.LogoURI}, nil
}

// PresentCredential presents the selected credentials. The session is closed once the verifier accepts
// the presentation; after a failure it stays open for another attempt.
func (w *Wallet) PresentCredential(ctx context.Context, req *PresentCredentialRequest) (*Empty, error) {
	interaction, err := w.sessions.presentation(req.SessionID)
	if err != nil {
		return nil, err
	}

	selected, err := parseStored(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	if err = interaction.PresentCredential(ctx, selected); err != nil {
		return nil, err
	}

	w.sessions.remove(req.SessionID)

	return &Empty{}, nil
}

// matchedCredentials returns the credentials matching at least one descriptor, in stored order.
func matchedCredentials(stored []*credential.Credential, requirements []*presexch.MatchedSubmissionRequirement) []string {
	matched := map[*credential.Credential]bool{}

	var walk func(reqs []*presexch.MatchedSubmissionRequirement)

	walk = func(reqs []*presexch.MatchedSubmissionRequirement) {
		for _, r := range reqs {
			for _, d := range r.Descriptors {
				for _, vc := range d.MatchedVCs {
					matched[vc] = true
				}
			}

			walk(r.Nested)
		}
	}

	walk(requirements)

	result := make([]string, 0, len(matched))

	for _, vc := range stored {
		if matched[vc] {
			result = append(result, vc.Serialize())
		}
	}

	return result
}

func toSubmissionRequirements(requirements []*presexch.MatchedSubmissionRequirement) []*SubmissionRequirement {
	result := make([]*SubmissionRequirement, 0, len(requirements))

	for _, r := range requirements {
		sr := &SubmissionRequirement{
			Name:    r.Name,
			Purpose: r.Purpose,
			Rule:    string(r.Rule),
			Count:   r.Count,
			Min:     r.Min,
			Max:     r.Max,
			Nested:  toSubmissionRequirements(r.Nested),
		}

		for _, d := range r.Descriptors {
			sr.Descriptors = append(sr.Descriptors, &InputDescriptor{
				ID:         d.ID,
				Name:       d.Name,
				Purpose:    d.Purpose,
				MatchedVCs: serialize(d.MatchedVCs),
			})
		}

		result = append(result, sr)
	}

	return result
}
