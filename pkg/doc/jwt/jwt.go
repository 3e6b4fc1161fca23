/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwt signs and verifies the compact JWS tokens exchanged during issuance and presentation.
package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
)

// Token types used by the wallet.
const (
	TypeJWT           = "JWT"
	TypeProof         = "openid4vci-proof+jwt"
	TypeRequestObject = "oauth-authz-req+jwt"
)

// ErrNoKeyFetcher is returned when verification is requested without a way to obtain keys.
var ErrNoKeyFetcher = errors.New("public key fetcher is not configured")

// Signer is a key able to produce JWS signatures. KeyID is the verification method
// that verifiers resolve to check the signature.
type Signer interface {
	jose.OpaqueSigner
	KeyID() string
}

// PublicKeyFetcher returns the public key identified by a JWS "kid" header. The issuer
// claim is passed so fetchers can resolve bare fragments.
type PublicKeyFetcher func(ctx context.Context, issuer, kid string) (*jose.JSONWebKey, error)

type signOpts struct {
	typ     string
	headers map[jose.HeaderKey]interface{}
}

// SignOpt configures token creation.
type SignOpt func(*signOpts)

// WithType sets the "typ" header.
func WithType(typ string) SignOpt {
	return func(o *signOpts) {
		o.typ = typ
	}
}

// WithHeader adds a protected header.
func WithHeader(key string, value interface{}) SignOpt {
	return func(o *signOpts) {
		o.headers[jose.HeaderKey(key)] = value
	}
}

// Sign serializes claims into a compact JWS signed by signer.
func Sign(signer Signer, claims interface{}, opts ...SignOpt) (string, error) {
	o := &signOpts{typ: TypeJWT, headers: map[jose.HeaderKey]interface{}{}}

	for _, f := range opts {
		f(o)
	}

	algs := signer.Algs()
	if len(algs) == 0 {
		return "", fmt.Errorf("signer %s supports no algorithm", signer.KeyID())
	}

	signerOpts := (&jose.SignerOptions{}).WithType(jose.ContentType(o.typ))

	for k, v := range o.headers {
		signerOpts = signerOpts.WithHeader(k, v)
	}

	s, err := jose.NewSigner(jose.SigningKey{Algorithm: algs[0], Key: signer}, signerOpts)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	token, err := josejwt.Signed(s).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

type parseOpts struct {
	fetcher       PublicKeyFetcher
	disableVerify bool
	expectedTypes []string
	ctx           context.Context //nolint:containedctx
}

// ParseOpt configures token parsing.
type ParseOpt func(*parseOpts)

// WithPublicKeyFetcher verifies the signature with keys obtained from fetcher.
func WithPublicKeyFetcher(fetcher PublicKeyFetcher) ParseOpt {
	return func(o *parseOpts) {
		o.fetcher = fetcher
	}
}

// WithSignatureVerificationDisabled skips signature checks.
func WithSignatureVerificationDisabled() ParseOpt {
	return func(o *parseOpts) {
		o.disableVerify = true
	}
}

// WithExpectedType rejects tokens whose "typ" header is not one of types.
func WithExpectedType(types ...string) ParseOpt {
	return func(o *parseOpts) {
		o.expectedTypes = types
	}
}

// WithContext bounds key fetching.
func WithContext(ctx context.Context) ParseOpt {
	return func(o *parseOpts) {
		o.ctx = ctx
	}
}

// JSONWebToken is a parsed token.
type JSONWebToken struct {
	Headers jose.Header
	Payload map[string]interface{}

	raw     string
	payload []byte
}

// Parse parses a compact JWS and, unless disabled, verifies its signature.
func Parse(token string, opts ...ParseOpt) (*JSONWebToken, error) {
	o := &parseOpts{ctx: context.Background()}

	for _, f := range opts {
		f(o)
	}

	if strings.Count(token, ".") != 2 { //nolint:gomnd
		return nil, errors.New("token is not a compact JWS")
	}

	tok, err := josejwt.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("parse JWS: %w", err)
	}

	if len(tok.Headers) != 1 {
		return nil, errors.New("token must have exactly one signature")
	}

	header := tok.Headers[0]

	if err = checkType(header, o.expectedTypes); err != nil {
		return nil, err
	}

	var raw json.RawMessage

	if err = tok.UnsafeClaimsWithoutVerification(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	payload := map[string]interface{}{}

	if err = json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	if !o.disableVerify {
		if o.fetcher == nil {
			return nil, ErrNoKeyFetcher
		}

		issuer, _ := payload["iss"].(string)

		key, fetchErr := o.fetcher(o.ctx, issuer, header.KeyID)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch public key %q: %w", header.KeyID, fetchErr)
		}

		var verified json.RawMessage

		if err = tok.Claims(key.Key, &verified); err != nil {
			return nil, fmt.Errorf("verify signature: %w", err)
		}
	}

	return &JSONWebToken{
		Headers: header,
		Payload: payload,
		raw:     token,
		payload: raw,
	}, nil
}

func checkType(header jose.Header, expected []string) error {
	if len(expected) == 0 {
		return nil
	}

	typ, _ := header.ExtraHeaders[jose.HeaderType].(string)

	for _, e := range expected {
		if strings.EqualFold(typ, e) {
			return nil
		}
	}

	return fmt.Errorf("unexpected token type %q", typ)
}

// DecodeClaims unmarshals the payload into out.
func (t *JSONWebToken) DecodeClaims(out interface{}) error {
	return json.Unmarshal(t.payload, out)
}

// PayloadBytes returns the raw JSON payload.
func (t *JSONWebToken) PayloadBytes() []byte {
	return t.payload
}

// Type returns the "typ" header.
func (t *JSONWebToken) Type() string {
	typ, _ := t.Headers.ExtraHeaders[jose.HeaderType].(string)

	return typ
}

// Serialize returns the token as it was parsed.
func (t *JSONWebToken) Serialize() string {
	return t.raw
}

// IsJWS reports whether s looks like a compact JWS.
func IsJWS(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 { //nolint:gomnd
		return false
	}

	for _, p := range parts[:2] {
		if p == "" || strings.ContainsAny(p, " {}\":/?=") {
			return false
		}
	}

	return true
}
