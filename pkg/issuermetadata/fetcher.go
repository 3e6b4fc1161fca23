/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuermetadata fetches OpenID credential issuer and authorization server metadata.
package issuermetadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/trustbloc/logutil-go/pkg/log"
	"github.com/valyala/fastjson"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("issuer-metadata")

const (
	// WellKnownPath is the path of the credential issuer metadata relative to the issuer URI.
	WellKnownPath = "/.well-known/openid-credential-issuer"

	openIDConfigurationPath   = "/.well-known/openid-configuration"
	oauthServerMetadataPath   = "/.well-known/oauth-authorization-server"
	defaultCacheSize          = 20
	defaultCacheTTL           = 5 * time.Minute
	openIDConfigCachePrefix   = "oidc:"
	issuerMetadataCachePrefix = "issuer:"
)

// OpenIDConfiguration is the subset of the authorization server metadata the wallet uses.
type OpenIDConfiguration struct {
	Issuer                             string   `json:"issuer,omitempty"`
	AuthorizationEndpoint              string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                      string   `json:"token_endpoint,omitempty"`
	PushedAuthorizationRequestEndpoint string   `json:"pushed_authorization_request_endpoint,omitempty"`
	GrantTypesSupported                []string `json:"grant_types_supported,omitempty"`
	PreAuthorizedGrantAnonymousAccess  bool     `json:"pre-authorized_grant_anonymous_access_supported,omitempty"`
}

// Fetcher fetches and caches issuer metadata. It is safe for concurrent use.
type Fetcher struct {
	httpClient  *httputil.Client
	didResolver did.Resolver
	cache       gcache.Cache
}

type options struct {
	httpClient  *httputil.Client
	didResolver did.Resolver
	cacheSize   int
	cacheTTL    time.Duration
}

// Opt configures the Fetcher.
type Opt func(*options)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *httputil.Client) Opt {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithDIDResolver sets the resolver used to verify signed metadata.
func WithDIDResolver(r did.Resolver) Opt {
	return func(o *options) {
		o.didResolver = r
	}
}

// WithCache sets the cache size and TTL. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Opt {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// NewFetcher returns a new Fetcher.
func NewFetcher(opts ...Opt) *Fetcher {
	o := &options{
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.httpClient == nil {
		o.httpClient = httputil.NewClient(nil)
	}

	if o.didResolver == nil {
		o.didResolver = resolver.New(resolver.WithHTTPClient(o.httpClient))
	}

	f := &Fetcher{
		httpClient:  o.httpClient,
		didResolver: o.didResolver,
	}

	if o.cacheSize > 0 {
		f.cache = gcache.New(o.cacheSize).LRU().Expiration(o.cacheTTL).Build()
	}

	return f
}

// Get returns the metadata of the credential issuer. Transport failures are reported as NETWORK_ERROR;
// error responses and unusable documents as METADATA_FETCH_FAILED.
func (f *Fetcher) Get(ctx context.Context, issuerURI string) (*Metadata, error) {
	issuerURI = strings.TrimSuffix(issuerURI, "/")

	if cached, ok := f.cached(issuerMetadataCachePrefix + issuerURI); ok {
		return cached.(*Metadata), nil //nolint:forcetypeassert
	}

	logger.Debugc(ctx, "Fetching issuer metadata", logfields.WithIssuerURI(issuerURI))

	body, err := f.fetch(ctx, issuerURI+WellKnownPath)
	if err != nil {
		return nil, err
	}

	m, err := f.parse(ctx, body)
	if err != nil {
		return nil, walleterror.New(walleterror.MetadataFetchError, err)
	}

	if strings.TrimSuffix(m.CredentialIssuer, "/") != issuerURI {
		return nil, walleterror.Newf(walleterror.MetadataFetchError,
			"credential_issuer %q does not match issuer URI %q", m.CredentialIssuer, issuerURI)
	}

	if m.CredentialEndpoint == "" {
		return nil, walleterror.Newf(walleterror.MetadataFetchError, "issuer metadata has no credential_endpoint")
	}

	f.store(ctx, issuerMetadataCachePrefix+issuerURI, m)

	return m, nil
}

// GetOpenIDConfiguration returns the metadata of the authorization server. The OpenID configuration
// is tried first, then the OAuth authorization server metadata.
func (f *Fetcher) GetOpenIDConfiguration(ctx context.Context, serverURL string) (*OpenIDConfiguration, error) {
	serverURL = strings.TrimSuffix(serverURL, "/")

	if cached, ok := f.cached(openIDConfigCachePrefix + serverURL); ok {
		return cached.(*OpenIDConfiguration), nil //nolint:forcetypeassert
	}

	body, err := f.fetch(ctx, serverURL+openIDConfigurationPath)
	if err != nil {
		if walleterror.HasCode(err, walleterror.NetworkError) {
			return nil, err
		}

		logger.Debugc(ctx, "OpenID configuration not available, trying OAuth server metadata",
			log.WithURL(serverURL), log.WithError(err))

		body, err = f.fetch(ctx, serverURL+oauthServerMetadataPath)
		if err != nil {
			return nil, err
		}
	}

	config := &OpenIDConfiguration{}

	if err = json.Unmarshal(body, config); err != nil {
		return nil, walleterror.Newf(walleterror.MetadataFetchError, "decode authorization server metadata: %w", err)
	}

	f.store(ctx, openIDConfigCachePrefix+serverURL, config)

	return config, nil
}

func (f *Fetcher) fetch(ctx context.Context, targetURL string) ([]byte, error) {
	resp, err := f.httpClient.Get(ctx, targetURL)
	if err != nil {
		return nil, walleterror.New(walleterror.NetworkError, err)
	}

	if err = resp.CheckStatus(); err != nil {
		return nil, walleterror.Newf(walleterror.MetadataFetchError, "fetch %s: %w", targetURL, err)
	}

	return resp.Body, nil
}

// parse decodes the metadata. When signed_metadata is present its verified claims take precedence
// over the unsigned values.
func (f *Fetcher) parse(ctx context.Context, body []byte) (*Metadata, error) {
	m := &Metadata{}

	if err := json.Unmarshal(body, m); err != nil {
		return nil, fmt.Errorf("decode issuer metadata: %w", err)
	}

	if m.SignedMetadata == "" {
		return m, nil
	}

	if !jwt.IsJWS(m.SignedMetadata) {
		return nil, errors.New("signed_metadata is not a JWS")
	}

	token, err := jwt.Parse(m.SignedMetadata,
		jwt.WithPublicKeyFetcher(did.NewPublicKeyFetcher(f.didResolver)),
		jwt.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("verify signed_metadata: %w", err)
	}

	var p fastjson.Parser

	claims, err := p.ParseBytes(token.PayloadBytes())
	if err != nil {
		return nil, fmt.Errorf("decode signed_metadata claims: %w", err)
	}

	signed := &Metadata{}

	if err = json.Unmarshal(body, signed); err != nil {
		return nil, fmt.Errorf("decode issuer metadata: %w", err)
	}

	if err = json.Unmarshal(token.PayloadBytes(), signed); err != nil {
		return nil, fmt.Errorf("decode signed_metadata claims: %w", err)
	}

	signed.signedBy = string(claims.GetStringBytes("iss"))

	logger.Debugc(ctx, "Issuer metadata is signed", logfields.WithDID(signed.signedBy))

	return signed, nil
}

func (f *Fetcher) cached(key string) (interface{}, bool) {
	if f.cache == nil {
		return nil, false
	}

	v, err := f.cache.Get(key)
	if err != nil {
		return nil, false
	}

	return v, true
}

func (f *Fetcher) store(ctx context.Context, key string, value interface{}) {
	if f.cache == nil {
		return
	}

	if err := f.cache.Set(key, value); err != nil {
		logger.Warnc(ctx, "Failed to cache metadata", log.WithError(err))
	}
}
