/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4vp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	"github.com/trustbloc/walletcore/pkg/presexch"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// requestObjectSource returns the request object carried by an authorization request, fetching it when
// the request passes it by reference.
func (i *Interaction) requestObjectSource(ctx context.Context, authorizationRequest string) (string, error) {
	authorizationRequest = strings.TrimSpace(authorizationRequest)

	u, err := url.Parse(authorizationRequest)
	if err != nil {
		return "", protocolError(fmt.Errorf("invalid authorization request: %w", err))
	}

	// A compact JWS never has a scheme or a query, so only a bare token gets here without one.
	if u.Scheme == "" && u.RawQuery == "" && jwt.IsJWS(authorizationRequest) {
		return authorizationRequest, nil
	}

	query := u.Query()

	switch {
	case query.Get("request") != "":
		return query.Get("request"), nil
	case query.Get("request_uri") != "":
		return i.fetchRequestObject(ctx, query.Get("request_uri"))
	default:
		return "", protocolError(errors.New("authorization request has neither request nor request_uri"))
	}
}

func (i *Interaction) fetchRequestObject(ctx context.Context, requestURI string) (string, error) {
	defer metrics.Record(i.metricsLogger, fetchRequestObjectEvent, startEvent, time.Now())

	logger.Debugc(ctx, "Fetching request object", logfields.WithRequestURI(requestURI))

	resp, err := i.httpClient.Get(ctx, requestURI)
	if err != nil {
		return "", newError(walleterror.NetworkError, startOperation, fmt.Errorf("fetch request object: %w", err))
	}

	if err = resp.CheckStatus(); err != nil {
		return "", protocolError(fmt.Errorf("fetch request object: %w", err))
	}

	return strings.TrimSpace(string(resp.Body)), nil
}

// decodeRequestObject verifies the request object signature with the key its kid names and checks
// that the object can be answered.
func (i *Interaction) decodeRequestObject(
	ctx context.Context,
	raw string,
) (*requestObject, *presexch.PresentationDefinition, error) {
	defer metrics.Record(i.metricsLogger, verifyRequestEvent, startEvent, time.Now())

	var payload []byte

	switch {
	case jwt.IsJWS(raw):
		opts := []jwt.ParseOpt{jwt.WithContext(ctx)}

		if i.cfg.DisableRequestObjectVerification {
			opts = append(opts, jwt.WithSignatureVerificationDisabled())
		} else {
			opts = append(opts, jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(i.cfg.DIDResolver)))
		}

		token, err := jwt.Parse(raw, opts...)
		if err != nil {
			return nil, nil, protocolError(fmt.Errorf("verify request object: %w", err))
		}

		if err = checkSigner(token); err != nil && !i.cfg.DisableRequestObjectVerification {
			return nil, nil, protocolError(err)
		}

		payload = token.PayloadBytes()
	case i.cfg.DisableRequestObjectVerification && strings.HasPrefix(raw, "{"):
		payload = []byte(raw)
	default:
		return nil, nil, protocolError(errors.New("request object is not a signed JWT"))
	}

	req := &requestObject{}

	if err := json.Unmarshal(payload, req); err != nil {
		return nil, nil, protocolError(fmt.Errorf("decode request object: %w", err))
	}

	if err := validateRequestObject(req); err != nil {
		return nil, nil, protocolError(err)
	}

	pd, err := presexch.ParsePresentationDefinition(req.presentationDefinition())
	if err != nil {
		return nil, nil, protocolError(fmt.Errorf("invalid presentation definition: %w", err))
	}

	return req, pd, nil
}

// checkSigner rejects request objects of a DID client that are signed with another DID's key.
func checkSigner(token *jwt.JSONWebToken) error {
	clientID, _ := token.Payload["client_id"].(string)
	if !strings.HasPrefix(clientID, "did:") || token.Headers.KeyID == "" || strings.HasPrefix(token.Headers.KeyID, "#") {
		return nil
	}

	if signer := did.StripDIDURL(token.Headers.KeyID); signer != clientID {
		return fmt.Errorf("request object of client %s is signed by %s", clientID, signer)
	}

	return nil
}

func validateRequestObject(req *requestObject) error {
	if req.ClientID == "" {
		return errors.New("request object has no client_id")
	}

	if req.Nonce == "" {
		return errors.New("request object has no nonce")
	}

	if req.ResponseType != "" && !strings.Contains(req.ResponseType, "vp_token") {
		return fmt.Errorf("unsupported response_type %q", req.ResponseType)
	}

	if req.Exp != 0 && time.Unix(req.Exp, 0).Before(time.Now()) {
		return errors.New("request object has expired")
	}

	responseURI, err := url.Parse(req.responseURI())
	if err != nil || responseURI.Host == "" || (responseURI.Scheme != "https" && responseURI.Scheme != "http") {
		return fmt.Errorf("invalid response uri %q", req.responseURI())
	}

	if len(req.presentationDefinition()) == 0 {
		return errors.New("request object has no presentation_definition")
	}

	return nil
}

func protocolError(err error) error {
	return newError(walleterror.ProtocolError, startOperation, err)
}
