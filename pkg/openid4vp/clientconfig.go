/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4vp

import (
	"errors"
	"net/http"
	"time"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/activitylogger"
	noopactivitylogger "github.com/trustbloc/walletcore/pkg/activitylogger/noop"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	noopmetricslogger "github.com/trustbloc/walletcore/pkg/observability/metrics/noop"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// KeyManager returns signers for the verification methods of the holder's DIDs.
type KeyManager interface {
	Signer(verificationMethodID string) (jwt.Signer, error)
}

// ClientConfig contains the parameters of a presentation interaction.
type ClientConfig struct {
	// DIDResolver and KeyManager are required. The resolver verifies request objects and finds the
	// assertion method of each holder; the key manager signs with it.
	DIDResolver    did.Resolver
	KeyManager     KeyManager
	ActivityLogger activitylogger.Logger // If not specified, then activities won't be logged.
	MetricsLogger  metrics.Logger        // If not specified, then metrics events won't be logged.
	// DisableRequestObjectVerification accepts request objects without checking their signature.
	DisableRequestObjectVerification bool
	HTTPClient                       httputil.HTTPClient
	HTTPTimeout                      time.Duration
	AdditionalHeaders                http.Header
	DisableOpenTelemetry             bool
}

func validateRequiredParameters(config *ClientConfig) error {
	switch {
	case config == nil:
		return invalidArgument("no client config provided")
	case config.DIDResolver == nil:
		return invalidArgument("no DID resolver provided")
	case config.KeyManager == nil:
		return invalidArgument("no key manager provided")
	}

	return nil
}

func invalidArgument(msg string) error {
	return walleterror.New(walleterror.InvalidArgumentError, errors.New(msg)).
		WithComponent(walleterror.OpenID4VPComponent)
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
