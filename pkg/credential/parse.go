/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/tidwall/gjson"

	"github.com/trustbloc/walletcore/pkg/credential/ldproof"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/doc/sdjwt"
	"github.com/trustbloc/walletcore/pkg/jsonld"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

type parseOpts struct {
	disableProofCheck bool
	didResolver       did.Resolver
	documentLoader    ld.DocumentLoader
	ctx               context.Context //nolint:containedctx
}

// Opt configures Parse.
type Opt func(*parseOpts)

// WithDisabledProofCheck skips signature and proof verification. Only use it to read metadata of
// credentials that are not relied upon.
func WithDisabledProofCheck() Opt {
	return func(o *parseOpts) {
		o.disableProofCheck = true
	}
}

// WithDIDResolver sets the resolver used to obtain issuer keys.
func WithDIDResolver(r did.Resolver) Opt {
	return func(o *parseOpts) {
		o.didResolver = r
	}
}

// WithJSONLDDocumentLoader sets the loader used to canonicalize JSON-LD credentials.
func WithJSONLDDocumentLoader(l ld.DocumentLoader) Opt {
	return func(o *parseOpts) {
		o.documentLoader = l
	}
}

// WithContext bounds DID resolution and context loading.
func WithContext(ctx context.Context) Opt {
	return func(o *parseOpts) {
		o.ctx = ctx
	}
}

// registered JWT claims that are not credential subject claims in SD-JWT VCs.
var registeredClaims = map[string]struct{}{ //nolint:gochecknoglobals
	"iss": {}, "sub": {}, "iat": {}, "nbf": {}, "exp": {}, "jti": {}, "vct": {}, "cnf": {}, "status": {},
}

// Parse parses a serialized credential and, unless disabled, verifies its proof.
func Parse(serialized string, opts ...Opt) (*Credential, error) {
	o := &parseOpts{ctx: context.Background()}

	for _, opt := range opts {
		opt(o)
	}

	if !o.disableProofCheck && o.didResolver == nil {
		o.didResolver = resolver.New()
	}

	s := strings.TrimSpace(serialized)

	switch {
	case s == "":
		return nil, malformed(errors.New("credential is empty"))
	case strings.HasPrefix(s, `"`):
		var unquoted string

		if err := json.Unmarshal([]byte(s), &unquoted); err != nil {
			return nil, malformed(fmt.Errorf("unquote credential: %w", err))
		}

		return Parse(unquoted, opts...)
	case strings.HasPrefix(s, "{"):
		return parseLD(s, o)
	case sdjwt.IsSDJWT(s):
		cf, err := sdjwt.Parse(s)
		if err != nil {
			return nil, malformed(err)
		}

		return parseJWT(s, cf.SDJWT, cf.Disclosures, o)
	case jwt.IsJWS(s):
		return parseJWT(s, s, nil, o)
	default:
		return nil, malformed(errors.New("unsupported credential serialization"))
	}
}

func parseLD(s string, o *parseOpts) (*Credential, error) {
	doc := map[string]interface{}{}

	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, malformed(fmt.Errorf("unmarshal credential: %w", err))
	}

	if !o.disableProofCheck {
		loader := o.documentLoader
		if loader == nil {
			l, err := jsonld.NewDocumentLoader()
			if err != nil {
				return nil, malformed(err)
			}

			loader = l
		}

		if err := ldproof.Verify(o.ctx, doc, did.NewPublicKeyFetcher(o.didResolver), loader); err != nil {
			return nil, proofFailed(fmt.Errorf("check linked data proof: %w", err))
		}
	}

	c, err := fromDocument(doc, FormatLDPVC)
	if err != nil {
		return nil, malformed(err)
	}

	c.serialized = s

	return c, nil
}

func parseJWT(serialized, token string, disclosures []string, o *parseOpts) (*Credential, error) {
	parsed, err := jwt.Parse(token, jwt.WithSignatureVerificationDisabled())
	if err != nil {
		return nil, malformed(err)
	}

	if !o.disableProofCheck {
		_, err = jwt.Parse(token, jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(o.didResolver)),
			jwt.WithContext(o.ctx))
		if err != nil {
			return nil, proofFailed(err)
		}
	}

	format := FormatJWTVC
	claims := parsed.Payload

	var disclosed map[string]interface{}

	if disclosures != nil || sdjwt.IsSDJWT(serialized) {
		format = FormatSDJWT

		claims, err = sdjwt.RestoreClaims(parsed.Payload, disclosures)
		if err != nil {
			return nil, malformed(fmt.Errorf("restore selectively disclosed claims: %w", err))
		}

		disclosed = map[string]interface{}{}

		for _, encoded := range disclosures {
			if d, dErr := sdjwt.ParseDisclosure(encoded); dErr == nil && d.Name != "" {
				disclosed[d.Name] = d.Value
			}
		}
	}

	doc := documentFromClaims(claims)

	c, err := fromDocument(doc, format)
	if err != nil {
		return nil, malformed(err)
	}

	if c.jwtClaims, err = json.Marshal(claims); err != nil {
		return nil, malformed(err)
	}

	c.serialized = serialized
	c.disclosures = disclosed

	return c, nil
}

// documentFromClaims maps JWT claims onto the credential document. Explicit credential properties
// take precedence over registered claims.
func documentFromClaims(claims map[string]interface{}) map[string]interface{} {
	doc, isVC := claims["vc"].(map[string]interface{})
	if !isVC {
		doc = map[string]interface{}{}
		subject := map[string]interface{}{}

		for k, v := range claims {
			if _, registered := registeredClaims[k]; !registered {
				subject[k] = v
			}
		}

		types := []interface{}{TypeVerifiableCredential}
		if vct, ok := claims["vct"].(string); ok {
			types = append(types, vct)
		}

		doc["type"] = types
		doc["credentialSubject"] = subject

		if status, ok := claims["status"].(map[string]interface{}); ok {
			doc["credentialStatus"] = status
		}
	}

	setIfAbsent(doc, "id", claims["jti"])
	setIfAbsent(doc, "issuer", claims["iss"])
	setIfAbsent(doc, "issuanceDate", unixToRFC3339(claims["nbf"]))
	setIfAbsent(doc, "issuanceDate", unixToRFC3339(claims["iat"]))
	setIfAbsent(doc, "expirationDate", unixToRFC3339(claims["exp"]))

	if sub, ok := claims["sub"].(string); ok {
		if subject, isMap := doc["credentialSubject"].(map[string]interface{}); isMap {
			setIfAbsent(subject, "id", sub)
		}
	}

	return doc
}

func setIfAbsent(m map[string]interface{}, key string, value interface{}) {
	if value == nil || value == "" {
		return
	}

	if _, exists := m[key]; !exists {
		m[key] = value
	}
}

func unixToRFC3339(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return nil
	}

	return time.Unix(int64(f), 0).UTC().Format(time.RFC3339)
}

func fromDocument(doc map[string]interface{}, format Format) (*Credential, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal credential: %w", err)
	}

	r := gjson.ParseBytes(raw)

	c := &Credential{
		ID:             r.Get("id").String(),
		Types:          stringOrArray(r.Get("type").Value()),
		Format:         format,
		IssuanceDate:   parseTime(firstOf(r, "issuanceDate", "validFrom")),
		ExpirationDate: parseTime(firstOf(r, "expirationDate", "validUntil")),
		document:       raw,
	}

	if len(c.Types) == 0 {
		return nil, errors.New("credential has no type")
	}

	issuer := r.Get("issuer")
	if issuer.IsObject() {
		c.IssuerID = issuer.Get("id").String()
		c.IssuerName = issuer.Get("name").String()
	} else {
		c.IssuerID = issuer.String()
	}

	if c.IssuerID == "" {
		return nil, errors.New("credential has no issuer")
	}

	subject := r.Get("credentialSubject")
	if !subject.Exists() {
		return nil, errors.New("credential has no credentialSubject")
	}

	if subject.IsArray() {
		for _, s := range subject.Array() {
			if id := s.Get("id").String(); id != "" {
				c.SubjectIDs = append(c.SubjectIDs, id)
			}
		}
	} else if id := subject.Get("id").String(); id != "" {
		c.SubjectIDs = []string{id}
	}

	for _, ctx := range r.Get("@context").Array() {
		if ctx.Type == gjson.String {
			c.Contexts = append(c.Contexts, ctx.String())
		}
	}

	if name := r.Get("name"); name.Type == gjson.String {
		c.Name = name.String()
	}

	status := r.Get("credentialStatus")
	if status.IsArray() {
		status = status.Get("0")
	}

	if status.IsObject() {
		c.Status = &StatusEntry{
			ID:                   status.Get("id").String(),
			Type:                 status.Get("type").String(),
			StatusPurpose:        status.Get("statusPurpose").String(),
			StatusListIndex:      firstOf(status, "statusListIndex", "revocationListIndex"),
			StatusListCredential: firstOf(status, "statusListCredential", "revocationListCredential"),
		}

		if err = json.Unmarshal([]byte(status.Raw), &c.Status.CustomFields); err != nil {
			return nil, fmt.Errorf("unmarshal credentialStatus: %w", err)
		}
	}

	return c, nil
}

func firstOf(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.String()
		}
	}

	return ""
}

func malformed(err error) error {
	return walleterror.New(walleterror.MalformedCredential, err).WithComponent(walleterror.CredentialComponent)
}

func proofFailed(err error) error {
	if walleterror.HasCode(err, walleterror.DIDResolutionError) {
		return err
	}

	return walleterror.New(walleterror.ProofVerificationError, err).WithComponent(walleterror.CredentialComponent)
}
