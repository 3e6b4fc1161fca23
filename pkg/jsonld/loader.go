/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jsonld provides the JSON-LD document loader used for linked data proofs.
package jsonld

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
)

var logger = log.New("jsonld")

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 24 * time.Hour
)

// ErrRemoteDisabled is returned for contexts that are neither preloaded nor cached when remote
// loading is disabled.
var ErrRemoteDisabled = errors.New("remote context loading is disabled")

// ContextDocument is a JSON-LD context served without network access.
type ContextDocument struct {
	URL         string
	DocumentURL string
	Content     []byte
}

type options struct {
	httpClient    *httputil.Client
	extraContexts []ContextDocument
	remote        bool
}

// Opt configures the document loader.
type Opt func(*options)

// WithHTTPClient sets the client used to fetch remote contexts.
func WithHTTPClient(client *httputil.Client) Opt {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithExtraContexts preloads contexts.
func WithExtraContexts(docs ...ContextDocument) Opt {
	return func(o *options) {
		o.extraContexts = append(o.extraContexts, docs...)
	}
}

// WithRemoteDisabled restricts the loader to preloaded contexts.
func WithRemoteDisabled() Opt {
	return func(o *options) {
		o.remote = false
	}
}

// DocumentLoader resolves contexts from the preloaded set first, then from the network.
// Remote documents are cached.
type DocumentLoader struct {
	preloaded map[string]*ld.RemoteDocument
	remote    ld.DocumentLoader
	cache     gcache.Cache
}

// NewDocumentLoader returns a new DocumentLoader.
func NewDocumentLoader(opts ...Opt) (*DocumentLoader, error) {
	o := &options{remote: true}

	for _, opt := range opts {
		opt(o)
	}

	l := &DocumentLoader{
		preloaded: map[string]*ld.RemoteDocument{},
		cache:     gcache.New(defaultCacheSize).LRU().Expiration(defaultCacheTTL).Build(),
	}

	for _, c := range o.extraContexts {
		doc, err := ld.DocumentFromReader(bytes.NewReader(c.Content))
		if err != nil {
			return nil, fmt.Errorf("parse context %s: %w", c.URL, err)
		}

		documentURL := c.DocumentURL
		if documentURL == "" {
			documentURL = c.URL
		}

		l.preloaded[c.URL] = &ld.RemoteDocument{DocumentURL: documentURL, Document: doc}
	}

	if o.remote {
		if o.httpClient == nil {
			o.httpClient = httputil.NewClient(nil)
		}

		l.remote = ld.NewDefaultDocumentLoader(o.httpClient.StdClient())
	}

	return l, nil
}

// LoadDocument implements ld.DocumentLoader.
func (l *DocumentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	if doc, ok := l.preloaded[u]; ok {
		return doc, nil
	}

	if cached, err := l.cache.Get(u); err == nil {
		return cached.(*ld.RemoteDocument), nil //nolint:forcetypeassert
	}

	if l.remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteDisabled, u)
	}

	doc, err := l.remote.LoadDocument(u)
	if err != nil {
		return nil, err
	}

	if err = l.cache.Set(u, doc); err != nil {
		logger.Warn("Failed to cache JSON-LD context", log.WithURL(u), log.WithError(err))
	}

	return doc, nil
}
