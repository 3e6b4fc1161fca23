/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4ci

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const credentialOfferScheme = "openid-credential-offer"

type offerParser struct {
	httpClient  *httputil.Client
	didResolver did.Resolver
}

// Parse reads a credential offer from an offer URI. The offer is either passed by value in the
// credential_offer parameter (as JSON or as a JWS), or by reference in credential_offer_uri. An
// openid-credential-offer://host/path URI without either parameter references https://host/path.
func (p *offerParser) Parse(ctx context.Context, offerURI string) (*CredentialOffer, error) {
	u, err := url.Parse(strings.TrimSpace(offerURI))
	if err != nil {
		return nil, protocolError(fmt.Errorf("invalid credential offer uri: %w", err))
	}

	query := u.Query()

	var payload []byte

	switch {
	case query.Get("credential_offer") != "":
		payload = []byte(query.Get("credential_offer"))
	case query.Get("credential_offer_uri") != "":
		payload, err = p.fetch(ctx, query.Get("credential_offer_uri"))
	case u.Scheme == credentialOfferScheme && u.Host != "":
		u.Scheme = "https"
		payload, err = p.fetch(ctx, u.String())
	default:
		return nil, protocolError(errors.New("both credential_offer and credential_offer_uri are empty"))
	}

	if err != nil {
		return nil, err
	}

	return p.decode(ctx, payload)
}

func (p *offerParser) fetch(ctx context.Context, offerURI string) ([]byte, error) {
	resp, err := p.httpClient.Get(ctx, offerURI)
	if err != nil {
		return nil, newError(walleterror.NetworkError, authorizeOperation, fmt.Errorf("fetch credential offer: %w", err))
	}

	if err = resp.CheckStatus(); err != nil {
		return nil, protocolError(fmt.Errorf("fetch credential offer: %w", err))
	}

	return resp.Body, nil
}

// decode accepts an offer JSON object or a JWS whose payload is the offer, or carries it in the
// credential_offer claim.
func (p *offerParser) decode(ctx context.Context, payload []byte) (*CredentialOffer, error) {
	payload = []byte(strings.TrimSpace(string(payload)))

	if jwt.IsJWS(string(payload)) {
		var err error

		payload, err = p.verifiedPayload(ctx, string(payload))
		if err != nil {
			return nil, err
		}
	}

	var offer CredentialOffer

	if err := json.Unmarshal(payload, &offer); err != nil {
		return nil, protocolError(fmt.Errorf("unmarshal credential offer: %w", err))
	}

	if offer.CredentialIssuer == "" {
		return nil, protocolError(errors.New("credential offer has no credential_issuer"))
	}

	if len(offer.CredentialConfigurationIDs) == 0 && len(offer.Credentials) == 0 {
		return nil, protocolError(errors.New("credential offer lists no credentials"))
	}

	return &offer, nil
}

func (p *offerParser) verifiedPayload(ctx context.Context, token string) ([]byte, error) {
	parsed, err := jwt.Parse(token,
		jwt.WithContext(ctx),
		jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(p.didResolver)),
	)
	if err != nil {
		return nil, protocolError(fmt.Errorf("parse credential offer JWT: %w", err))
	}

	var parser fastjson.Parser

	v, err := parser.ParseBytes(parsed.PayloadBytes())
	if err != nil {
		return nil, protocolError(fmt.Errorf("decode credential offer payload: %w", err))
	}

	if offer := v.Get("credential_offer"); offer != nil {
		if offer.Type() != fastjson.TypeObject {
			return nil, protocolError(errors.New("credential_offer claim is not an object"))
		}

		return offer.MarshalTo(nil), nil
	}

	return parsed.PayloadBytes(), nil
}

func protocolError(err error) error {
	return newError(walleterror.ProtocolError, authorizeOperation, err)
}
