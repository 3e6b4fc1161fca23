/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package openid4ci implements the wallet side of OpenID for Verifiable Credential Issuance.
package openid4ci

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"
	"golang.org/x/oauth2"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/issuermetadata"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("openid4ci")

const (
	authorizeEvent         = "Authorize"
	fetchMetadataEvent     = "Fetch issuer metadata"
	tokenRequestEvent      = "Token request"
	credentialRequestEvent = "Credential request"
	requestCredentialEvent = "Request credential"

	authorizeOperation         = "authorize"
	requestCredentialOperation = "requestCredential"
)

type state int

const (
	stateCreated state = iota
	stateAuthorized
	stateCredentialIssued
)

// Interaction is a single issuance session: Authorize, then RequestCredential once. It is safe for
// concurrent use; state transitions are serialized.
type Interaction struct {
	mutex sync.Mutex

	cfg            *ClientConfig
	httpClient     *httputil.Client
	offers         *offerParser
	fetcher        *issuermetadata.Fetcher
	metricsLogger  metrics.Logger
	activityLogger activitylogger.Logger

	state          state
	offer          *CredentialOffer
	metadata       *issuermetadata.Metadata
	configurations []*issuermetadata.CredentialConfiguration
	tokenEndpoint  string
	pinRequired    bool
	oauthConfig    *oauth2.Config
	oauthState     string
	codeVerifier   string
}

// NewInteraction creates an issuance interaction.
func NewInteraction(cfg *ClientConfig) (*Interaction, error) {
	if err := validateRequiredParameters(cfg); err != nil {
		return nil, err
	}

	httpClient := cfg.httpClient()

	fetcher := cfg.MetadataFetcher
	if fetcher == nil {
		fetcher = issuermetadata.NewFetcher(
			issuermetadata.WithHTTPClient(httpClient),
			issuermetadata.WithDIDResolver(cfg.DIDResolver),
		)
	}

	return &Interaction{
		cfg:            cfg,
		httpClient:     httpClient,
		offers:         &offerParser{httpClient: httpClient, didResolver: cfg.DIDResolver},
		fetcher:        fetcher,
		metricsLogger:  cfg.metricsLogger(),
		activityLogger: cfg.activityLogger(),
	}, nil
}

// Authorize parses the credential offer, fetches the issuer metadata and prepares the offered grant.
func (i *Interaction) Authorize(ctx context.Context, offerURI string) (*AuthorizeResult, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.state != stateCreated {
		return nil, stateError(authorizeOperation, "interaction is already authorized")
	}

	defer metrics.Record(i.metricsLogger, authorizeEvent, "", time.Now())

	offer, err := i.offers.Parse(ctx, offerURI)
	if err != nil {
		return nil, err
	}

	logger.Debugc(ctx, "Credential offer parsed", logfields.WithIssuerURI(offer.CredentialIssuer))

	metadataStart := time.Now()

	metadata, err := i.fetcher.Get(ctx, offer.CredentialIssuer)
	if err != nil {
		return nil, err
	}

	metrics.Record(i.metricsLogger, fetchMetadataEvent, authorizeEvent, metadataStart)

	configurations, err := offeredConfigurations(offer, metadata)
	if err != nil {
		return nil, err
	}

	var result *AuthorizeResult

	switch {
	case offer.Grants.PreAuthorizedCode != nil:
		result, err = i.preparePreAuthorizedCodeGrant(ctx, metadata, offer.Grants.PreAuthorizedCode)
	case offer.Grants.AuthorizationCode != nil:
		result, err = i.prepareAuthorizationCodeGrant(ctx, metadata, offer.Grants.AuthorizationCode, configurations)
	default:
		err = walleterror.Newf(walleterror.UnsupportedGrantError,
			"credential offer has neither a pre-authorized code grant nor an authorization code grant").
			WithComponent(walleterror.OpenID4CIComponent).WithOperation(authorizeOperation)
	}

	if err != nil {
		return nil, err
	}

	i.offer = offer
	i.metadata = metadata
	i.configurations = configurations
	i.state = stateAuthorized

	logger.Infoc(ctx, "Issuance interaction authorized", logfields.WithIssuerURI(offer.CredentialIssuer),
		logfields.WithGrantType(i.grantType()))

	return result, nil
}

func (i *Interaction) preparePreAuthorizedCodeGrant(
	ctx context.Context,
	metadata *issuermetadata.Metadata,
	grant *PreAuthorizedCodeGrant,
) (*AuthorizeResult, error) {
	if grant.PreAuthorizedCode == "" {
		return nil, newError(walleterror.ProtocolError, authorizeOperation,
			errors.New("pre-authorized code grant has no pre-authorized_code"))
	}

	tokenEndpoint := metadata.TokenEndpoint

	if tokenEndpoint == "" || grant.AuthorizationServer != "" {
		oidcConfig, err := i.openIDConfiguration(ctx, metadata, grant.AuthorizationServer)
		if err != nil {
			return nil, err
		}

		tokenEndpoint = oidcConfig.TokenEndpoint
	}

	i.tokenEndpoint = tokenEndpoint
	i.pinRequired = grant.TxCode != nil || grant.UserPINRequired

	return &AuthorizeResult{PINRequired: i.pinRequired, TxCode: grant.TxCode}, nil
}

func (i *Interaction) prepareAuthorizationCodeGrant(
	ctx context.Context,
	metadata *issuermetadata.Metadata,
	grant *AuthorizationCodeGrant,
	configurations []*issuermetadata.CredentialConfiguration,
) (*AuthorizeResult, error) {
	if i.cfg.RedirectURI == "" {
		return nil, newError(walleterror.InvalidArgumentError, authorizeOperation,
			errors.New("a redirect URI is required for the authorization code grant"))
	}

	oidcConfig, err := i.openIDConfiguration(ctx, metadata, grant.AuthorizationServer)
	if err != nil {
		return nil, err
	}

	if oidcConfig.AuthorizationEndpoint == "" {
		return nil, newError(walleterror.MetadataFetchError, authorizeOperation,
			errors.New("authorization server has no authorization endpoint"))
	}

	verifier, challenge, err := newPKCE()
	if err != nil {
		return nil, newError(walleterror.SystemError, authorizeOperation, err)
	}

	details, err := authorizationDetails(metadata.CredentialIssuer, configurations)
	if err != nil {
		return nil, newError(walleterror.SystemError, authorizeOperation, err)
	}

	i.tokenEndpoint = oidcConfig.TokenEndpoint
	i.codeVerifier = verifier
	i.oauthState = uuid.NewString()
	i.oauthConfig = &oauth2.Config{
		ClientID:    i.cfg.ClientID,
		RedirectURL: i.cfg.RedirectURI,
		Scopes:      i.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   oidcConfig.AuthorizationEndpoint,
			TokenURL:  oidcConfig.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	authCodeOptions := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("authorization_details", details),
	}

	if grant.IssuerState != "" {
		authCodeOptions = append(authCodeOptions, oauth2.SetAuthURLParam("issuer_state", grant.IssuerState))
	}

	return &AuthorizeResult{
		AuthorizationURL: i.oauthConfig.AuthCodeURL(i.oauthState, authCodeOptions...),
	}, nil
}

func (i *Interaction) openIDConfiguration(
	ctx context.Context,
	metadata *issuermetadata.Metadata,
	authorizationServer string,
) (*issuermetadata.OpenIDConfiguration, error) {
	if authorizationServer == "" {
		authorizationServer = metadata.AuthorizationServerURL()
	}

	oidcConfig, err := i.fetcher.GetOpenIDConfiguration(ctx, authorizationServer)
	if err != nil {
		return nil, err
	}

	if oidcConfig.TokenEndpoint == "" {
		return nil, newError(walleterror.MetadataFetchError, authorizeOperation,
			fmt.Errorf("authorization server %s has no token endpoint", authorizationServer))
	}

	return oidcConfig, nil
}

// IssuerURI returns the credential issuer of the offer.
func (i *Interaction) IssuerURI() (string, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.offer == nil {
		return "", stateError("issuerURI", "the issuer is not known before authorization")
	}

	return i.offer.CredentialIssuer, nil
}

// IssuerMetadata returns the metadata fetched by Authorize.
func (i *Interaction) IssuerMetadata() (*issuermetadata.Metadata, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.metadata == nil {
		return nil, stateError("issuerMetadata", "issuer metadata is not known before authorization")
	}

	return i.metadata, nil
}

type requestOpts struct {
	pin                   string
	authorizationResponse string
}

// RequestOpt configures RequestCredential.
type RequestOpt func(*requestOpts)

// WithPIN sets the transaction code of the pre-authorized code grant.
func WithPIN(pin string) RequestOpt {
	return func(o *requestOpts) {
		o.pin = pin
	}
}

// WithAuthorizationResponse sets the redirect URI, with the authorization code, that the authorization
// server sent the user back to.
func WithAuthorizationResponse(redirectURI string) RequestOpt {
	return func(o *requestOpts) {
		o.authorizationResponse = redirectURI
	}
}

type accessToken struct {
	value  string
	cNonce string
}

// RequestCredential redeems the grant and requests every offered credential, each bound to signer with a
// key proof. An interaction issues credentials at most once.
func (i *Interaction) RequestCredential(
	ctx context.Context,
	signer jwt.Signer,
	opts ...RequestOpt,
) ([]*credential.Credential, error) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	switch i.state {
	case stateCreated:
		return nil, stateError(requestCredentialOperation, "credentials requested before authorization")
	case stateCredentialIssued:
		return nil, stateError(requestCredentialOperation, "credentials were already issued for this offer")
	}

	if signer == nil {
		return nil, newError(walleterror.InvalidArgumentError, requestCredentialOperation,
			errors.New("no signer provided"))
	}

	o := &requestOpts{}
	for _, opt := range opts {
		opt(o)
	}

	start := time.Now()

	token, err := i.accessToken(ctx, o)
	if err != nil {
		return nil, err
	}

	credentials, err := i.requestCredentials(ctx, signer, token)
	if err != nil {
		return nil, err
	}

	i.state = stateCredentialIssued

	metrics.Record(i.metricsLogger, requestCredentialEvent, "", start)

	logger.Infoc(ctx, "Credentials issued", logfields.WithIssuerURI(i.offer.CredentialIssuer),
		logfields.WithTotalCredentials(len(credentials)))

	i.logActivity(ctx, credentials)

	return credentials, nil
}

func (i *Interaction) accessToken(ctx context.Context, o *requestOpts) (*accessToken, error) {
	start := time.Now()
	defer metrics.Record(i.metricsLogger, tokenRequestEvent, requestCredentialEvent, start)

	if i.oauthConfig != nil {
		return i.exchangeAuthorizationCode(ctx, o.authorizationResponse)
	}

	grant := i.offer.Grants.PreAuthorizedCode

	if i.pinRequired && o.pin == "" {
		return nil, stateError(requestCredentialOperation, "the issuer requires a PIN but none was provided")
	}

	form := url.Values{
		"grant_type":          {PreAuthorizedCodeGrantType},
		"pre-authorized_code": {grant.PreAuthorizedCode},
	}

	if i.cfg.ClientID != "" {
		form.Set("client_id", i.cfg.ClientID)
	}

	if i.pinRequired {
		if grant.TxCode != nil {
			form.Set("tx_code", o.pin)
		} else {
			form.Set("user_pin", o.pin)
		}
	}

	resp, err := i.httpClient.PostForm(ctx, i.tokenEndpoint, form, "")
	if err != nil {
		return nil, newError(walleterror.NetworkError, requestCredentialOperation,
			fmt.Errorf("token request: %w", err))
	}

	if statusErr := resp.CheckStatus(); statusErr != nil {
		var oauthErr oauthErrorResponse

		if json.Unmarshal(resp.Body, &oauthErr) == nil && oauthErr.Error == "invalid_grant" && i.pinRequired {
			return nil, newError(walleterror.InvalidPinError, requestCredentialOperation,
				fmt.Errorf("issuer rejected the PIN: %w", statusErr))
		}

		return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
			fmt.Errorf("token request: %w", statusErr))
	}

	var tokenResp tokenResponse

	if err = json.Unmarshal(resp.Body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
			fmt.Errorf("token response has no access token: %s", resp.Body))
	}

	return &accessToken{value: tokenResp.AccessToken, cNonce: tokenResp.CNonce}, nil
}

func (i *Interaction) exchangeAuthorizationCode(ctx context.Context, redirectURI string) (*accessToken, error) {
	if redirectURI == "" {
		return nil, stateError(requestCredentialOperation, "the authorization response is required")
	}

	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, newError(walleterror.ProtocolError, requestCredentialOperation,
			fmt.Errorf("invalid authorization response: %w", err))
	}

	query := u.Query()

	if authErr := query.Get("error"); authErr != "" {
		return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
			fmt.Errorf("authorization failed: %s %s", authErr, query.Get("error_description")))
	}

	if query.Get("state") != i.oauthState {
		return nil, newError(walleterror.ProtocolError, requestCredentialOperation,
			errors.New("authorization response state does not match the request"))
	}

	code := query.Get("code")
	if code == "" {
		return nil, newError(walleterror.ProtocolError, requestCredentialOperation,
			errors.New("authorization response has no code"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient.StdClient())

	token, err := i.oauthConfig.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", i.codeVerifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
				fmt.Errorf("exchange code for token: %w", err))
		}

		return nil, newError(walleterror.NetworkError, requestCredentialOperation,
			fmt.Errorf("exchange code for token: %w", err))
	}

	cNonce, _ := token.Extra("c_nonce").(string) //nolint:errcheck

	return &accessToken{value: token.AccessToken, cNonce: cNonce}, nil
}

func (i *Interaction) requestCredentials(
	ctx context.Context,
	signer jwt.Signer,
	token *accessToken,
) ([]*credential.Credential, error) {
	nonce := token.cNonce
	credentials := make([]*credential.Credential, 0, len(i.configurations))

	for _, config := range i.configurations {
		start := time.Now()

		proof, err := buildProof(signer, i.cfg.ClientID, i.metadata.CredentialIssuer, nonce)
		if err != nil {
			return nil, newError(walleterror.IssuanceError, requestCredentialOperation, err)
		}

		body, err := json.Marshal(newCredentialRequest(config, proof))
		if err != nil {
			return nil, newError(walleterror.SystemError, requestCredentialOperation, err)
		}

		resp, err := i.httpClient.PostJSON(ctx, i.metadata.CredentialEndpoint, body, token.value)
		if err != nil {
			return nil, newError(walleterror.NetworkError, requestCredentialOperation,
				fmt.Errorf("credential request: %w", err))
		}

		if err = resp.CheckStatus(); err != nil {
			return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
				fmt.Errorf("credential request: %w", err))
		}

		var credentialResp credentialResponse

		if err = json.Unmarshal(resp.Body, &credentialResp); err != nil || len(credentialResp.Credential) == 0 {
			return nil, newError(walleterror.IssuanceError, requestCredentialOperation,
				fmt.Errorf("credential response has no credential: %s", resp.Body))
		}

		vc, err := credential.Parse(string(credentialResp.Credential), i.parseOpts(ctx)...)
		if err != nil {
			return nil, err
		}

		if credentialResp.CNonce != "" {
			nonce = credentialResp.CNonce
		}

		logger.Debugc(ctx, "Credential received", logfields.WithCredentialID(vc.ID))

		credentials = append(credentials, vc)

		metrics.Record(i.metricsLogger, credentialRequestEvent, requestCredentialEvent, start)
	}

	return credentials, nil
}

func (i *Interaction) parseOpts(ctx context.Context) []credential.Opt {
	opts := []credential.Opt{
		credential.WithContext(ctx),
		credential.WithDIDResolver(i.cfg.DIDResolver),
	}

	if i.cfg.DisableVCProofChecks {
		opts = append(opts, credential.WithDisabledProofCheck())
	}

	if i.cfg.DocumentLoader != nil {
		opts = append(opts, credential.WithJSONLDDocumentLoader(i.cfg.DocumentLoader))
	}

	return opts
}

// logActivity records the issuance. The credentials are already issued, so a failure to log is reported
// but does not fail the request.
func (i *Interaction) logActivity(ctx context.Context, credentials []*credential.Credential) {
	client := i.metadata.CredentialIssuer
	if display := i.metadata.LocalizedIssuerDisplay(""); display != nil && display.Name != "" {
		client = display.Name
	}

	subjectIDs := lo.Uniq(lo.FlatMap(credentials, func(vc *credential.Credential, _ int) []string {
		return vc.SubjectIDs
	}))

	activity := activitylogger.NewCredentialActivity(client, activitylogger.OperationIssuance,
		map[string]interface{}{"subjectIDs": subjectIDs})

	if err := i.activityLogger.Log(ctx, activity); err != nil {
		logger.Warnc(ctx, "Failed to log issuance activity", log.WithError(err))
	}
}

func (i *Interaction) grantType() string {
	if i.oauthConfig != nil {
		return AuthorizationCodeGrantType
	}

	return PreAuthorizedCodeGrantType
}

func newCredentialRequest(config *issuermetadata.CredentialConfiguration, proof *jwtProof) *credentialRequest {
	req := &credentialRequest{Format: config.Format, Proof: proof}

	switch {
	case config.VCT != "":
		req.VCT = config.VCT
	case config.CredentialDefinition != nil:
		req.CredentialDefinition = &credentialDefinition{
			Context: config.CredentialDefinition.Context,
			Type:    config.CredentialDefinition.Type,
		}
	default:
		req.Types = config.Types
	}

	return req
}

func stateError(operation, msg string) error {
	return walleterror.New(walleterror.StateError, errors.New(msg)).
		WithComponent(walleterror.OpenID4CIComponent).WithOperation(operation)
}

func newError(code walleterror.Code, operation string, err error) error {
	return walleterror.New(code, err).WithComponent(walleterror.OpenID4CIComponent).WithOperation(operation)
}
