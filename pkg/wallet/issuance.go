/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/credentialschema"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/kms"
	"github.com/trustbloc/walletcore/pkg/openid4ci"
	"github.com/trustbloc/walletcore/pkg/qrcode"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// CreateDID creates a DID whose keys are held by the wallet. The new DID becomes the default holder
// DID of RequestCredential.
func (w *Wallet) CreateDID(_ context.Context, req *CreateDIDRequest) (*CreateDIDResponse, error) {
	res, err := w.didCreator.Create(req.DIDMethodType, kms.KeyType(req.KeyType))
	if err != nil {
		return nil, err
	}

	w.setLastDID(res.DIDDocument.ID)

	return &CreateDIDResponse{DID: res.DIDDocument.ID, DIDDoc: res.Content}, nil
}

// FetchDID resolves a DID.
func (w *Wallet) FetchDID(ctx context.Context, req *FetchDIDRequest) (*FetchDIDResponse, error) {
	if req.DID == "" {
		return nil, invalidArgument("fetchDID", "no DID provided")
	}

	res, err := w.didResolver.Resolve(ctx, req.DID)
	if err != nil {
		return nil, err
	}

	return &FetchDIDResponse{DIDDoc: res.Content}, nil
}

// Authorize starts an issuance session for a credential offer.
func (w *Wallet) Authorize(ctx context.Context, req *AuthorizeRequest) (*AuthorizeResponse, error) {
	offerURI, err := inputText("authorize", req.RequestURI, req.QRCode)
	if err != nil {
		return nil, err
	}

	interaction, err := openid4ci.NewInteraction(&openid4ci.ClientConfig{
		ClientID:             w.cfg.ClientID,
		DIDResolver:          w.didResolver,
		ActivityLogger:       w.activityLogger,
		MetricsLogger:        w.metricsLogger,
		DisableVCProofChecks: w.cfg.DisableVCProofChecks,
		DocumentLoader:       w.cfg.DocumentLoader,
		HTTPClient:           w.cfg.HTTPClient,
		HTTPTimeout:          w.cfg.HTTPTimeout,
		AdditionalHeaders:    w.cfg.AdditionalHeaders,
		DisableOpenTelemetry: w.cfg.DisableOpenTelemetry,
		RedirectURI:          w.cfg.RedirectURI,
		Scopes:               w.cfg.Scopes,
		MetadataFetcher:      w.fetcher,
	})
	if err != nil {
		return nil, err
	}

	result, err := interaction.Authorize(ctx, offerURI)
	if err != nil {
		return nil, err
	}

	sessionID, err := w.sessions.add(interaction)
	if err != nil {
		return nil, err
	}

	logger.Debugc(ctx, "Issuance session started", logfields.WithSessionID(sessionID))

	resp := &AuthorizeResponse{
		SessionID:        sessionID,
		UserPINRequired:  result.PINRequired,
		AuthorizationURL: result.AuthorizationURL,
	}

	if result.TxCode != nil {
		resp.PINLength = result.TxCode.Length
		resp.PINDescription = result.TxCode.Description
	}

	return resp, nil
}

// IssuerURI returns the credential issuer of an issuance session.
func (w *Wallet) IssuerURI(_ context.Context, req *SessionRequest) (*IssuerURIResponse, error) {
	interaction, err := w.sessions.issuance(req.SessionID)
	if err != nil {
		return nil, err
	}

	uri, err := interaction.IssuerURI()
	if err != nil {
		return nil, err
	}

	return &IssuerURIResponse{IssuerURI: uri}, nil
}

// RequestCredential completes an issuance session. The credentials are bound to the requested DID,
// or to the last DID created by the wallet. The session stays open until it expires so that its
// issuer can still be looked up.
func (w *Wallet) RequestCredential(ctx context.Context, req *RequestCredentialRequest) (*CredentialsResponse, error) {
	interaction, err := w.sessions.issuance(req.SessionID)
	if err != nil {
		return nil, err
	}

	holderDID := req.DID
	if holderDID == "" {
		holderDID = w.defaultDID()
	}

	if holderDID == "" {
		return nil, invalidArgument("requestCredential", "no DID provided and no DID was created")
	}

	signer, err := w.signer(ctx, holderDID)
	if err != nil {
		return nil, err
	}

	var opts []openid4ci.RequestOpt

	if req.OTP != "" {
		opts = append(opts, openid4ci.WithPIN(req.OTP))
	}

	if req.AuthorizationResponse != "" {
		opts = append(opts, openid4ci.WithAuthorizationResponse(req.AuthorizationResponse))
	}

	credentials, err := interaction.RequestCredential(ctx, signer, opts...)
	if err != nil {
		return nil, err
	}

	return &CredentialsResponse{Credentials: serialize(credentials)}, nil
}

// SerializeDisplayData resolves the display data of issued credentials against their issuer metadata.
func (w *Wallet) SerializeDisplayData(
	ctx context.Context,
	req *SerializeDisplayDataRequest,
) (*SerializeDisplayDataResponse, error) {
	issuerURI := req.IssuerURI

	if issuerURI == "" && req.SessionID != "" {
		uri, err := w.IssuerURI(ctx, &SessionRequest{SessionID: req.SessionID})
		if err != nil {
			return nil, err
		}

		issuerURI = uri.IssuerURI
	}

	if issuerURI == "" {
		return nil, invalidArgument("serializeDisplayData", "no issuer URI provided")
	}

	credentials, err := parseStored(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	data, err := credentialschema.Resolve(ctx, credentials,
		credentialschema.WithIssuerURI(issuerURI),
		credentialschema.WithMetadataFetcher(w.fetcher),
		credentialschema.WithPreferredLocale(req.Locale),
	)
	if err != nil {
		return nil, err
	}

	serialized, err := data.Serialize()
	if err != nil {
		return nil, err
	}

	return &SerializeDisplayDataResponse{DisplayData: serialized}, nil
}

// ResolveCredentialDisplay flattens serialized display data for presentation to the user. Claims are
// sorted by their display order.
func (w *Wallet) ResolveCredentialDisplay(
	_ context.Context,
	req *ResolveCredentialDisplayRequest,
) (*ResolveCredentialDisplayResponse, error) {
	data, err := credentialschema.ParseDisplayData(req.DisplayData)
	if err != nil {
		return nil, err
	}

	var issuerName string

	if data.IssuerDisplay != nil {
		issuerName = data.IssuerDisplay.Name
	}

	resp := &ResolveCredentialDisplayResponse{
		IssuerName:  issuerName,
		Credentials: make([]*CredentialDisplay, 0, len(data.CredentialDisplays)),
	}

	for i := range data.CredentialDisplays {
		display := &data.CredentialDisplays[i]

		d := &CredentialDisplay{IssuerName: issuerName}

		if o := display.Overview; o != nil {
			d.OverviewName = o.Name
			d.Description = o.Description
			d.TextColor = o.TextColor
			d.BackgroundColor = o.BackgroundColor

			if o.Logo != nil {
				d.Logo = o.Logo.URL
			}
		}

		if err = copier.Copy(&d.Claims, display.SortedClaims()); err != nil {
			return nil, walleterror.New(walleterror.SystemError, fmt.Errorf("copy claims: %w", err)).
				WithComponent(walleterror.WalletComponent).WithOperation("resolveCredentialDisplay")
		}

		resp.Credentials = append(resp.Credentials, d)
	}

	return resp, nil
}

func (w *Wallet) signer(ctx context.Context, holderDID string) (jwt.Signer, error) {
	res, err := w.didResolver.Resolve(ctx, holderDID)
	if err != nil {
		return nil, err
	}

	vmID, err := res.AssertionMethodID()
	if err != nil {
		return nil, walleterror.New(walleterror.InvalidArgumentError, err).WithComponent(walleterror.WalletComponent)
	}

	signer, err := w.kms.Signer(vmID)
	if err != nil {
		logger.Debugc(ctx, "No key for DID", logfields.WithDID(holderDID), log.WithError(err))

		return nil, walleterror.New(walleterror.InvalidArgumentError,
			fmt.Errorf("DID %s is not controlled by this wallet: %w", holderDID, err)).
			WithComponent(walleterror.WalletComponent)
	}

	return signer, nil
}

// inputText returns text, or the text of the QR code when only a QR code image is given.
func inputText(operation, text, qrCode string) (string, error) {
	switch {
	case text != "":
		return text, nil
	case qrCode != "":
		return qrcode.DecodeBase64(qrCode)
	default:
		return "", invalidArgument(operation, "neither a URI nor a QR code was provided")
	}
}

// parseStored parses credentials the wallet already holds. Their proofs were verified when they were
// received.
func parseStored(ctx context.Context, serialized []string) ([]*credential.Credential, error) {
	credentials := make([]*credential.Credential, 0, len(serialized))

	for i, s := range serialized {
		vc, err := credential.Parse(s, credential.WithDisabledProofCheck(), credential.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("credential at index %d: %w", i, err)
		}

		credentials = append(credentials, vc)
	}

	return credentials, nil
}

func serialize(credentials []*credential.Credential) []string {
	serialized := make([]string, 0, len(credentials))

	for _, vc := range credentials {
		serialized = append(serialized, vc.Serialize())
	}

	return serialized
}

func invalidArgument(operation, msg string) error {
	return walleterror.New(walleterror.InvalidArgumentError, errors.New(msg)).
		WithComponent(walleterror.WalletComponent).WithOperation(operation)
}
