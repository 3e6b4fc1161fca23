/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status checks the revocation and suspension status of credentials.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("status-verifier")

const (
	defaultCacheSize = 50
	defaultCacheTTL  = 5 * time.Minute
)

type options struct {
	httpClient        *httputil.Client
	didResolver       did.Resolver
	documentLoader    ld.DocumentLoader
	disableProofCheck bool
	cacheSize         int
	cacheTTL          time.Duration
}

// Opt configures the Verifier.
type Opt func(*options)

// WithHTTPClient sets the client used to fetch status list credentials.
func WithHTTPClient(client *httputil.Client) Opt {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithDIDResolver sets the resolver used for status list credential proofs and DID URL status lists.
func WithDIDResolver(r did.Resolver) Opt {
	return func(o *options) {
		o.didResolver = r
	}
}

// WithJSONLDDocumentLoader sets the loader used for linked data status list credentials.
func WithJSONLDDocumentLoader(l ld.DocumentLoader) Opt {
	return func(o *options) {
		o.documentLoader = l
	}
}

// WithDisabledProofCheck skips proof checks on status list credentials.
func WithDisabledProofCheck() Opt {
	return func(o *options) {
		o.disableProofCheck = true
	}
}

// WithCache sets the status list cache size and TTL. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Opt {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// Verifier checks credential status against the status list the credential points to.
type Verifier struct {
	httpClient  *httputil.Client
	didResolver did.Resolver
	parseOpts   []credential.Opt
	cache       gcache.Cache
}

// NewVerifier returns a new Verifier.
func NewVerifier(opts ...Opt) *Verifier {
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

	v := &Verifier{
		httpClient:  o.httpClient,
		didResolver: o.didResolver,
		parseOpts:   []credential.Opt{credential.WithDIDResolver(o.didResolver)},
	}

	if o.documentLoader != nil {
		v.parseOpts = append(v.parseOpts, credential.WithJSONLDDocumentLoader(o.documentLoader))
	}

	if o.disableProofCheck {
		v.parseOpts = append(v.parseOpts, credential.WithDisabledProofCheck())
	}

	if o.cacheSize > 0 {
		v.cache = gcache.New(o.cacheSize).LRU().Expiration(o.cacheTTL).Build()
	}

	return v
}

// Verify returns nil if the credential is neither expired nor revoked or suspended. Credentials
// without a status entry cannot be revoked and pass.
func (v *Verifier) Verify(ctx context.Context, vc *credential.Credential) error {
	if vc == nil {
		return walleterror.Newf(walleterror.InvalidArgumentError, "credential is required").
			WithComponent(walleterror.StatusComponent)
	}

	if vc.IsExpired() {
		return walleterror.Newf(walleterror.CredentialExpiredError, "credential %s expired at %s",
			vc.ID, vc.ExpirationDate.Format(time.RFC3339)).WithComponent(walleterror.StatusComponent)
	}

	if vc.Status == nil {
		logger.Debugc(ctx, "Credential has no status", logfields.WithCredentialID(vc.ID))

		return nil
	}

	p, err := processorFor(vc.Status)
	if err != nil {
		return resolutionError(err)
	}

	if err = p.validate(vc.Status); err != nil {
		return resolutionError(err)
	}

	idx, err := p.index(vc.Status)
	if err != nil {
		return resolutionError(err)
	}

	listVC, err := v.statusList(ctx, vc.Status.StatusListCredential)
	if err != nil {
		return err
	}

	subject := listVC.Subject()

	if t := subject.Get("type").String(); t != p.subjectType {
		return walleterror.Newf(walleterror.StatusListMismatchError,
			"status list credential subject type %q does not match %q", t, p.subjectType).
			WithComponent(walleterror.StatusComponent)
	}

	purpose := p.purpose(vc.Status)

	if listPurpose := subject.Get("statusPurpose").String(); listPurpose != "" && listPurpose != purpose {
		return walleterror.Newf(walleterror.StatusListMismatchError,
			"status purpose %q does not match status list purpose %q", purpose, listPurpose).
			WithComponent(walleterror.StatusComponent)
	}

	bits, err := p.decode(subject.Get("encodedList").String())
	if err != nil {
		return resolutionError(fmt.Errorf("decode status list: %w", err))
	}

	set, err := bits.Get(idx)
	if err != nil {
		return resolutionError(fmt.Errorf("status list index %d: %w", idx, err))
	}

	if set {
		state := "revoked"
		if purpose == purposeSuspension {
			state = "suspended"
		}

		return walleterror.Newf(walleterror.CredentialRevokedError, "credential %s has been %s", vc.ID, state).
			WithComponent(walleterror.StatusComponent)
	}

	logger.Debugc(ctx, "Credential status verified", logfields.WithCredentialID(vc.ID),
		logfields.WithStatusListURL(vc.Status.StatusListCredential))

	return nil
}

func (v *Verifier) statusList(ctx context.Context, listURL string) (*credential.Credential, error) {
	if v.cache != nil {
		if cached, err := v.cache.Get(listURL); err == nil {
			return cached.(*credential.Credential), nil //nolint:forcetypeassert
		}
	}

	endpoint, err := v.endpoint(ctx, listURL)
	if err != nil {
		return nil, resolutionError(err)
	}

	resp, err := v.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, resolutionError(err)
	}

	if err = resp.CheckStatus(); err != nil {
		return nil, resolutionError(fmt.Errorf("fetch status list %s: %w", endpoint, err))
	}

	listVC, err := credential.Parse(string(resp.Body), append(v.parseOpts, credential.WithContext(ctx))...)
	if err != nil {
		return nil, resolutionError(fmt.Errorf("parse status list credential: %w", err))
	}

	if v.cache != nil {
		if err = v.cache.Set(listURL, listVC); err != nil {
			logger.Warnc(ctx, "Failed to cache status list", log.WithError(err))
		}
	}

	return listVC, nil
}

// endpoint maps a DID URL naming a service of the issuer DID onto the service's endpoint.
func (v *Verifier) endpoint(ctx context.Context, listURL string) (string, error) {
	if !strings.HasPrefix(listURL, "did:") {
		return listURL, nil
	}

	res, err := v.didResolver.Resolve(ctx, did.StripDIDURL(listURL))
	if err != nil {
		return "", err
	}

	for _, s := range res.DIDDocument.Service {
		if s.ID != listURL && res.DIDDocument.ID+s.ID != listURL {
			continue
		}

		if uris := s.URIs(); len(uris) > 0 {
			return uris[0], nil
		}
	}

	return "", fmt.Errorf("no service endpoint for status list %s", listURL)
}

func resolutionError(err error) error {
	var walletErr *walleterror.Error
	if errors.As(err, &walletErr) && walletErr.Category() == walleterror.CategoryExternalDependency {
		return err
	}

	return walleterror.New(walleterror.StatusResolutionError, err).WithComponent(walleterror.StatusComponent)
}
