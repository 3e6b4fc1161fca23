/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wellknown validates DID Configuration (linked domains) resources.
package wellknown

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/valyala/fastjson"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
)

var logger = log.New("linked-domains")

const (
	linkedDomainsService        = "LinkedDomains"
	didConfigurationPath        = "/.well-known/did-configuration.json"
	domainLinkageCredentialType = "DomainLinkageCredential"
)

// ValidationResult is the outcome of a linked domains check.
type ValidationResult struct {
	IsValid    bool   `json:"isValid"`
	ServiceURL string `json:"serviceURL"`
}

// ValidateLinkedDomains checks that the DID publishes a LinkedDomains service and that the domain
// behind it links back to the DID. Any failure yields a negative result; errors are only logged.
func ValidateLinkedDomains(
	ctx context.Context,
	didID string,
	resolver did.Resolver,
	httpClient *httputil.Client,
) ValidationResult {
	serviceURL, err := validate(ctx, didID, resolver, httpClient)
	if err != nil {
		logger.Debugc(ctx, "Linked domain validation failed", logfields.WithDID(didID), log.WithError(err))

		return ValidationResult{}
	}

	return ValidationResult{IsValid: true, ServiceURL: serviceURL}
}

func validate(ctx context.Context, didID string, resolver did.Resolver, httpClient *httputil.Client) (string, error) {
	if resolver == nil {
		return "", errors.New("no DID resolver")
	}

	if httpClient == nil {
		httpClient = httputil.NewClient(nil)
	}

	res, err := resolver.Resolve(ctx, didID)
	if err != nil {
		return "", fmt.Errorf("resolve DID %s: %w", didID, err)
	}

	services := res.DIDDocument.ServicesByType(linkedDomainsService)
	if len(services) == 0 {
		return "", fmt.Errorf("no LinkedDomains service in DID %s", didID)
	}

	uris := services[0].URIs()
	if len(uris) == 0 {
		return "", errors.New("LinkedDomains service has no endpoint")
	}

	origin, err := originOf(uris[0])
	if err != nil {
		return "", err
	}

	resp, err := httpClient.Get(ctx, origin+didConfigurationPath)
	if err != nil {
		return "", err
	}

	if err = resp.CheckStatus(); err != nil {
		return "", err
	}

	linkedDIDs, err := parseDIDConfiguration(resp.Body)
	if err != nil {
		return "", err
	}

	fetcher := did.NewPublicKeyFetcher(resolver)

	for _, linked := range linkedDIDs {
		if err = verifyDomainLinkage(ctx, linked, didID, origin, fetcher); err == nil {
			return uris[0], nil
		}

		logger.Debugc(ctx, "Skipping domain linkage credential", logfields.WithDID(didID), log.WithError(err))
	}

	return "", errors.New("domain linkage credential(s) with valid proof not found")
}

func originOf(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid LinkedDomains origin %q", endpoint)
	}

	return u.Scheme + "://" + u.Host, nil
}

func parseDIDConfiguration(data []byte) ([]string, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse DID configuration: %w", err)
	}

	if !v.Exists("@context") {
		return nil, errors.New("did configuration: property '@context' is required")
	}

	entries := v.GetArray("linked_dids")
	if len(entries) == 0 {
		return nil, errors.New("did configuration: property 'linked_dids' is required")
	}

	var tokens []string

	for _, e := range entries {
		// JSON-LD domain linkage credentials are not supported.
		if e.Type() != fastjson.TypeString {
			continue
		}

		tokens = append(tokens, string(e.GetStringBytes()))
	}

	return tokens, nil
}

type domainLinkageClaims struct {
	Issuer     string `json:"iss"`
	Subject    string `json:"sub"`
	Expiry     int64  `json:"exp"`
	NotBefore  int64  `json:"nbf"`
	Credential struct {
		Types             []string `json:"type"`
		CredentialSubject struct {
			ID     string `json:"id"`
			Origin string `json:"origin"`
		} `json:"credentialSubject"`
	} `json:"vc"`
}

func verifyDomainLinkage(ctx context.Context, token, didID, origin string, fetcher jwt.PublicKeyFetcher) error {
	parsed, err := jwt.Parse(token, jwt.WithPublicKeyFetcher(fetcher), jwt.WithContext(ctx))
	if err != nil {
		return err
	}

	if typ := parsed.Type(); typ != "" && typ != jwt.TypeJWT {
		return errors.New("typ is not JWT")
	}

	var claims domainLinkageClaims

	if err = parsed.DecodeClaims(&claims); err != nil {
		return err
	}

	subject := claims.Credential.CredentialSubject

	switch {
	case claims.Issuer != didID:
		return errors.New("iss MUST be equal to credentialSubject.id")
	case claims.Subject != didID || subject.ID != didID:
		return errors.New("sub MUST be equal to credentialSubject.id")
	case !lo.Contains(claims.Credential.Types, domainLinkageCredentialType):
		return fmt.Errorf("credential is not of %s type", domainLinkageCredentialType)
	case strings.TrimSuffix(subject.Origin, "/") != origin:
		return fmt.Errorf("origin[%s] and domain origin[%s] are different", subject.Origin, origin)
	case claims.Expiry == 0:
		return errors.New("expiration date MUST be present")
	case time.Unix(claims.Expiry, 0).Before(time.Now()):
		return errors.New("domain linkage credential has expired")
	case claims.NotBefore != 0 && time.Unix(claims.NotBefore, 0).After(time.Now()):
		return errors.New("domain linkage credential is not yet valid")
	}

	return nil
}
