/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4ci

import (
	"errors"
	"net/http"
	"time"

	"github.com/piprate/json-gold/ld"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	noopactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/noop"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/issuermetadata"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	noopmetricslogger "github.com/trustbloc/walletcore/pkg/observability/metrics/noop"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// ClientConfig contains the parameters of an issuance interaction.
type ClientConfig struct {
	// ClientID is sent in token requests and as the issuer of proof JWTs. Optional for the
	// pre-authorized code grant.
	ClientID string
	// DIDResolver is required. It verifies signed offers, signed metadata and issued credentials.
	DIDResolver    did.Resolver
	ActivityLogger activitylogger.Logger // If not specified, then activities won't be logged.
	MetricsLogger  metrics.Logger        // If not specified, then metrics events won't be logged.
	// DisableVCProofChecks skips proof verification of issued credentials.
	DisableVCProofChecks bool
	DocumentLoader       ld.DocumentLoader
	HTTPClient           httputil.HTTPClient
	HTTPTimeout          time.Duration
	AdditionalHeaders    http.Header
	DisableOpenTelemetry bool
	// RedirectURI and Scopes are used by the authorization code grant.
	RedirectURI string
	Scopes      []string
	// MetadataFetcher lets interactions share a metadata cache. One is created if not specified.
	MetadataFetcher *issuermetadata.Fetcher
}

func validateRequiredParameters(config *ClientConfig) error {
	if config == nil {
		return walleterror.New(walleterror.InvalidArgumentError, errors.New("no client config provided")).
			WithComponent(walleterror.OpenID4CIComponent)
	}

	if config.DIDResolver == nil {
		return walleterror.New(walleterror.InvalidArgumentError, errors.New("no DID resolver provided")).
			WithComponent(walleterror.OpenID4CIComponent)
	}

	return nil
}

func (c *ClientConfig) httpClient() *httputil.Client {
	client := c.HTTPClient
	if client == nil {
		timeout := c.HTTPTimeout
		if timeout == 0 {
			timeout = httputil.DefaultTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	opts := []httputil.Opt{httputil.WithAdditionalHeaders(c.AdditionalHeaders)}

	if c.DisableOpenTelemetry {
		opts = append(opts, httputil.WithoutTraceHeaders())
	}

	return httputil.NewClient(client, opts...)
}

func (c *ClientConfig) activityLogger() activitylogger.Logger {
	if c.ActivityLogger == nil {
		return noopactivitylogger.New()
	}

	return c.ActivityLogger
}

func (c *ClientConfig) metricsLogger() metrics.Logger {
	if c.MetricsLogger == nil {
		return noopmetricslogger.NewLogger()
	}

	return c.MetricsLogger
}
