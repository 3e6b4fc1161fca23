/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resolver resolves DIDs through registered methods, with an LRU cache in front.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/jwk"
	"github.com/trustbloc/walletcore/pkg/did/key"
	"github.com/trustbloc/walletcore/pkg/did/web"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("did-resolver")

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

// Method reads documents of one DID method.
type Method interface {
	Read(ctx context.Context, did string) (*did.DocResolution, error)
}

// Resolver resolves DIDs. It is safe for concurrent use.
type Resolver struct {
	methods           map[string]Method
	cache             gcache.Cache
	httpClient        *httputil.Client
	resolverServerURI string
}

type options struct {
	methods           map[string]Method
	httpClient        *httputil.Client
	resolverServerURI string
	cacheSize         int
	cacheTTL          time.Duration
}

// Opt configures the resolver.
type Opt func(*options)

// WithMethod registers or replaces a method.
func WithMethod(name string, m Method) Opt {
	return func(o *options) {
		o.methods[name] = m
	}
}

// WithHTTPClient sets the client used for did:web and the resolver server.
func WithHTTPClient(client *httputil.Client) Opt {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithResolverServerURI resolves methods without a local implementation through a
// universal resolver endpoint (GET <uri>/<did>).
func WithResolverServerURI(uri string) Opt {
	return func(o *options) {
		o.resolverServerURI = strings.TrimSuffix(uri, "/")
	}
}

// WithCache sets the cache size and entry lifetime. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Opt {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// New returns a resolver supporting did:key, did:jwk and did:web.
func New(opts ...Opt) *Resolver {
	o := &options{
		methods:   map[string]Method{},
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}

	for _, f := range opts {
		f(o)
	}

	if o.httpClient == nil {
		o.httpClient = httputil.NewClient(nil)
	}

	methods := map[string]Method{
		key.DIDMethod: key.New(),
		jwk.DIDMethod: jwk.New(),
		web.DIDMethod: web.New(o.httpClient),
	}

	for name, m := range o.methods {
		methods[name] = m
	}

	r := &Resolver{
		methods:           methods,
		httpClient:        o.httpClient,
		resolverServerURI: o.resolverServerURI,
	}

	if o.cacheSize > 0 {
		r.cache = gcache.New(o.cacheSize).LRU().Expiration(o.cacheTTL).Build()
	}

	return r
}

// Resolve resolves a DID. Failures are reported as DID_RESOLUTION_FAILED.
func (r *Resolver) Resolve(ctx context.Context, didStr string) (*did.DocResolution, error) {
	parsed, err := did.Parse(didStr)
	if err != nil {
		return nil, resolutionError(err)
	}

	id := parsed.String()

	if r.cache != nil {
		if cached, cacheErr := r.cache.Get(id); cacheErr == nil {
			return cached.(*did.DocResolution), nil //nolint:forcetypeassert
		} else if !errors.Is(cacheErr, gcache.KeyNotFoundError) {
			logger.Warnc(ctx, "DID cache lookup failed", log.WithError(cacheErr))
		}
	}

	res, err := r.read(ctx, parsed)
	if err != nil {
		return nil, resolutionError(err)
	}

	if r.cache != nil {
		if setErr := r.cache.Set(id, res); setErr != nil {
			logger.Warnc(ctx, "Failed to cache DID document", logfields.WithDID(id), log.WithError(setErr))
		}
	}

	return res, nil
}

func (r *Resolver) read(ctx context.Context, parsed *did.DID) (*did.DocResolution, error) {
	m, ok := r.methods[parsed.Method]
	if ok {
		return m.Read(ctx, parsed.String())
	}

	if r.resolverServerURI == "" {
		return nil, fmt.Errorf("unsupported DID method %q", parsed.Method)
	}

	logger.Debugc(ctx, "Resolving DID through resolver server",
		logfields.WithDID(parsed.String()), logfields.WithDIDMethod(parsed.Method))

	resp, err := r.httpClient.Get(ctx, r.resolverServerURI+"/"+url.PathEscape(parsed.String()))
	if err != nil {
		return nil, err
	}

	if err = resp.CheckStatus(); err != nil {
		return nil, fmt.Errorf("resolver server: %w", err)
	}

	return did.ParseDocResolution(resp.Body)
}

func resolutionError(err error) error {
	return walleterror.New(walleterror.DIDResolutionError, err).
		WithComponent(walleterror.DIDResolverComponent)
}
