/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package openid4vp implements the wallet side of OpenID for Verifiable Presentations.
package openid4vp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	"github.com/trustbloc/walletcore/pkg/presexch"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("openid4vp")

const (
	startEvent              = "Start presentation"
	fetchRequestObjectEvent = "Fetch request object"
	verifyRequestEvent      = "Verify authorization request"
	matchEvent              = "Match credentials"
	createResponseEvent     = "Create authorized response"
	sendResponseEvent       = "Send authorized response"
	presentEvent            = "Present credential"

	startOperation   = "start"
	matchOperation   = "getMatchedSubmissionRequirements"
	presentOperation = "presentCredential"
)

type state int

const (
	stateCreated state = iota
	stateRequestParsed
	statePresenting
	statePresented
)

// Interaction is a single presentation session: Start, then any number of
// GetMatchedSubmissionRequirements, then PresentCredential once.
type Interaction struct {
	mutex sync.Mutex

	cfg            *ClientConfig
	httpClient     *httputil.Client
	metricsLogger  metrics.Logger
	activityLogger activitylogger.Logger

	state      state
	request    *requestObject
	definition *presexch.PresentationDefinition
	matched    []*presexch.MatchedSubmissionRequirement
}

// NewInteraction creates a presentation interaction.
func NewInteraction(cfg *ClientConfig) (*Interaction, error) {
	if err := validateRequiredParameters(cfg); err != nil {
		return nil, err
	}

	return &Interaction{
		cfg:            cfg,
		httpClient:     cfg.httpClient(),
		metricsLogger:  cfg.metricsLogger(),
		activityLogger: cfg.activityLogger(),
	}, nil
}

// Start processes an authorization request: an openid-vc:// or openid4vp:// URI with a request or
// request_uri parameter, or a bare request object JWT.
func (i *Interaction) Start(ctx context.Context, authorizationRequest string) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.state != stateCreated {
		return stateError(startOperation, "authorization request was already processed")
	}

	defer metrics.Record(i.metricsLogger, startEvent, "", time.Now())

	raw, err := i.requestObjectSource(ctx, authorizationRequest)
	if err != nil {
		return err
	}

	req, pd, err := i.decodeRequestObject(ctx, raw)
	if err != nil {
		return err
	}

	i.request = req
	i.definition = pd
	i.state = stateRequestParsed

	logger.Infoc(ctx, "Authorization request processed", logfields.WithClientID(req.ClientID),
		logfields.WithPresDefID(pd.ID))

	return nil
}

// PresentationDefinition returns the definition of the processed request.
func (i *Interaction) PresentationDefinition() (*presexch.PresentationDefinition, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.definition == nil {
		return nil, stateError("presentationDefinition", "no authorization request processed")
	}

	return i.definition, nil
}

// VerifierDisplayData returns what the verifier says about itself in its client metadata.
func (i *Interaction) VerifierDisplayData() (*VerifierDisplayData, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.request == nil {
		return nil, stateError("verifierDisplayData", "no authorization request processed")
	}

	metadata := i.request.metadata()

	purpose := metadata.ClientPurpose
	if purpose == "" {
		purpose = i.definition.Purpose
	}

	return &VerifierDisplayData{
		DID:     i.request.ClientID,
		Name:    metadata.ClientName,
		Purpose: purpose,
		LogoURI: metadata.LogoURI,
	}, nil
}

// GetMatchedSubmissionRequirements matches the credentials against the presentation definition. It
// may be called again with other credentials until a presentation is made.
func (i *Interaction) GetMatchedSubmissionRequirements(
	credentials []*credential.Credential,
) ([]*presexch.MatchedSubmissionRequirement, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	switch i.state {
	case stateCreated:
		return nil, stateError(matchOperation, "no authorization request processed")
	case statePresenting, statePresented:
		return nil, stateError(matchOperation, "credentials were already presented")
	}

	defer metrics.Record(i.metricsLogger, matchEvent, "", time.Now())

	matched, err := i.definition.MatchSubmissionRequirement(credentials)
	if err != nil {
		return nil, newError(walleterror.InvalidArgumentError, matchOperation, err)
	}

	i.matched = matched

	return matched, nil
}

// PresentCredential sends the selected credentials to the verifier. The selection must satisfy the
// submission requirements; each credential is submitted for every input descriptor it matches.
// A failed submission can be retried.
func (i *Interaction) PresentCredential(ctx context.Context, selected []*credential.Credential) error {
	req, pd, requirements, err := i.beginPresentation(selected)
	if err != nil {
		return err
	}

	err = i.present(ctx, req, pd, requirements, selected)

	i.mutex.Lock()
	defer i.mutex.Unlock()

	if err != nil {
		i.state = stateRequestParsed

		return err
	}

	i.state = statePresented

	return nil
}

func (i *Interaction) beginPresentation(
	selected []*credential.Credential,
) (*requestObject, *presexch.PresentationDefinition, []*presexch.MatchedSubmissionRequirement, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	switch i.state {
	case stateCreated:
		return nil, nil, nil, stateError(presentOperation, "no authorization request processed")
	case statePresenting:
		return nil, nil, nil, stateError(presentOperation, "a presentation is already in flight")
	case statePresented:
		return nil, nil, nil, stateError(presentOperation, "credentials were already presented")
	}

	requirements := i.matched
	if requirements == nil && len(selected) > 0 {
		var err error

		requirements, err = i.definition.MatchSubmissionRequirement(selected)
		if err != nil {
			return nil, nil, nil, newError(walleterror.SelectionError, presentOperation, err)
		}
	}

	i.state = statePresenting

	return i.request, i.definition, requirements, nil
}

func (i *Interaction) present(
	ctx context.Context,
	req *requestObject,
	pd *presexch.PresentationDefinition,
	requirements []*presexch.MatchedSubmissionRequirement,
	selected []*credential.Credential,
) error {
	start := time.Now()

	selection, err := presexch.ValidateSelection(requirements, selected)
	if err != nil {
		return err
	}

	response, err := i.createAuthorizedResponse(ctx, req, pd, selection)
	if err != nil {
		return err
	}

	metrics.Record(i.metricsLogger, createResponseEvent, presentEvent, start)

	if err = i.sendAuthorizedResponse(ctx, req, response); err != nil {
		return err
	}

	metrics.Record(i.metricsLogger, presentEvent, "", start)

	logger.Infoc(ctx, "Credentials presented", logfields.WithClientID(req.ClientID),
		logfields.WithTotalCredentials(len(selected)))

	i.logActivity(ctx, req, selected)

	return nil
}

func (i *Interaction) sendAuthorizedResponse(ctx context.Context, req *requestObject, resp *authorizedResponse) error {
	defer metrics.Record(i.metricsLogger, sendResponseEvent, presentEvent, time.Now())

	submission, err := json.Marshal(resp.Submission)
	if err != nil {
		return newError(walleterror.SystemError, presentOperation, err)
	}

	form := url.Values{
		"id_token":                {resp.IDToken},
		"vp_token":                {resp.VPToken},
		"presentation_submission": {string(submission)},
	}

	if resp.State != "" {
		form.Set("state", resp.State)
	}

	logger.Debugc(ctx, "Sending authorized response", log.WithURL(req.responseURI()),
		logfields.WithVPToken(resp.VPToken))

	httpResp, err := i.httpClient.PostForm(ctx, req.responseURI(), form, "")
	if err != nil {
		return newError(walleterror.SubmissionError, presentOperation,
			fmt.Errorf("send authorized response: %w", err))
	}

	if err = httpResp.CheckStatus(http.StatusOK, http.StatusNoContent); err != nil {
		return newError(walleterror.SubmissionError, presentOperation,
			fmt.Errorf("verifier rejected the presentation: %w", err))
	}

	return nil
}

// logActivity records the presentation. The verifier already accepted it, so a failure to log is
// reported but does not fail the request.
func (i *Interaction) logActivity(ctx context.Context, req *requestObject, selected []*credential.Credential) {
	client := req.metadata().ClientName
	if client == "" {
		client = req.ClientID
	}

	credentialIDs := make([]string, 0, len(selected))
	for _, vc := range selected {
		credentialIDs = append(credentialIDs, vc.ID)
	}

	activity := activitylogger.NewCredentialActivity(client, activitylogger.OperationPresentation,
		map[string]interface{}{"credentialIDs": credentialIDs})

	if err := i.activityLogger.Log(ctx, activity); err != nil {
		logger.Warnc(ctx, "Failed to log presentation activity", log.WithError(err))
	}
}

func stateError(operation, msg string) error {
	return walleterror.New(walleterror.StateError, errors.New(msg)).
		WithComponent(walleterror.OpenID4VPComponent).WithOperation(operation)
}

func newError(code walleterror.Code, operation string, err error) error {
	return walleterror.New(code, err).WithComponent(walleterror.OpenID4VPComponent).WithOperation(operation)
}
