/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet exposes the wallet operations over explicit issuance and presentation sessions.
package wallet

import (
	"net/http"
	"sync"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	memactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/mem"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/credential/status"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/creator"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/issuermetadata"
	"github.com/trustbloc/walletcore/pkg/kms"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	noopmetricslogger "github.com/trustbloc/walletcore/pkg/observability/metrics/noop"
)

var logger = log.New("wallet")

// Config contains the parameters of a wallet. Every field is optional.
type Config struct {
	// KMS holds the keys of the DIDs created by the wallet. A new in-memory KMS is used if not specified.
	KMS *kms.LocalKMS
	// DIDResolver defaults to a resolver for did:key, did:jwk and did:web.
	DIDResolver          did.Resolver
	DIDResolverServerURI string
	// ActivityLogger defaults to an in-memory log.
	ActivityLogger       activitylogger.Logger
	MetricsLogger        metrics.Logger
	DocumentLoader       ld.DocumentLoader
	HTTPClient           httputil.HTTPClient
	HTTPTimeout          time.Duration
	AdditionalHeaders    http.Header
	DisableOpenTelemetry bool
	DisableVCProofChecks bool
	// ClientID, RedirectURI and Scopes are used by authorization code issuance.
	ClientID    string
	RedirectURI string
	Scopes      []string
	// SessionCacheSize and SessionTTL bound the session table.
	SessionCacheSize int
	SessionTTL       time.Duration
	Version          VersionDetails
}

// Wallet runs issuance and presentation sessions for a single holder. It is safe for concurrent use.
type Wallet struct {
	cfg            *Config
	kms            *kms.LocalKMS
	httpClient     *httputil.Client
	didResolver    did.Resolver
	didCreator     *creator.Creator
	fetcher        *issuermetadata.Fetcher
	statusVerifier *status.Verifier
	activityLogger activitylogger.Logger
	metricsLogger  metrics.Logger
	sessions       *sessions

	mutex   sync.RWMutex
	lastDID string
}

// New initializes a wallet.
func New(cfg *Config) *Wallet {
	if cfg == nil {
		cfg = &Config{}
	}

	w := &Wallet{
		cfg:            cfg,
		kms:            cfg.KMS,
		didResolver:    cfg.DIDResolver,
		activityLogger: cfg.ActivityLogger,
		metricsLogger:  cfg.MetricsLogger,
		sessions:       newSessions(cfg.SessionCacheSize, cfg.SessionTTL),
	}

	w.httpClient = w.newHTTPClient()

	if w.kms == nil {
		w.kms = kms.NewLocalKMS()
	}

	if w.didResolver == nil {
		w.didResolver = resolver.New(
			resolver.WithHTTPClient(w.httpClient),
			resolver.WithResolverServerURI(cfg.DIDResolverServerURI),
		)
	}

	if w.activityLogger == nil {
		w.activityLogger = memactivitylogger.New()
	}

	if w.metricsLogger == nil {
		w.metricsLogger = noopmetricslogger.NewLogger()
	}

	w.didCreator = creator.New(w.kms)
	w.fetcher = issuermetadata.NewFetcher(
		issuermetadata.WithHTTPClient(w.httpClient),
		issuermetadata.WithDIDResolver(w.didResolver),
	)

	statusOpts := []status.Opt{
		status.WithHTTPClient(w.httpClient),
		status.WithDIDResolver(w.didResolver),
	}

	if cfg.DocumentLoader != nil {
		statusOpts = append(statusOpts, status.WithJSONLDDocumentLoader(cfg.DocumentLoader))
	}

	if cfg.DisableVCProofChecks {
		statusOpts = append(statusOpts, status.WithDisabledProofCheck())
	}

	w.statusVerifier = status.NewVerifier(statusOpts...)

	logger.Debug("Wallet initialized")

	return w
}

// ActivityLog returns the log the wallet records activities in.
func (w *Wallet) ActivityLog() activitylogger.Logger {
	return w.activityLogger
}

// GetVersionDetails describes the wallet build.
func (w *Wallet) GetVersionDetails() *VersionDetails {
	v := w.cfg.Version

	return &v
}

func (w *Wallet) newHTTPClient() *httputil.Client {
	client := w.cfg.HTTPClient
	if client == nil {
		timeout := w.cfg.HTTPTimeout
		if timeout == 0 {
			timeout = httputil.DefaultTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	opts := []httputil.Opt{httputil.WithAdditionalHeaders(w.cfg.AdditionalHeaders)}

	if w.cfg.DisableOpenTelemetry {
		opts = append(opts, httputil.WithoutTraceHeaders())
	}

	return httputil.NewClient(client, opts...)
}

// parseOpts returns the options used for credentials received from issuers.
func (w *Wallet) parseOpts() []credential.Opt {
	opts := []credential.Opt{credential.WithDIDResolver(w.didResolver)}

	if w.cfg.DocumentLoader != nil {
		opts = append(opts, credential.WithJSONLDDocumentLoader(w.cfg.DocumentLoader))
	}

	if w.cfg.DisableVCProofChecks {
		opts = append(opts, credential.WithDisabledProofCheck())
	}

	return opts
}

func (w *Wallet) setLastDID(id string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.lastDID = id
}

func (w *Wallet) defaultDID() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.lastDID
}
