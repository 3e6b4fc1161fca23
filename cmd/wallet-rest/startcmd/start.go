/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	tlsutils "github.com/trustbloc/cmdutil-go/pkg/utils/tls"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/cmd/common"
	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/jsonld"
	"github.com/trustbloc/walletcore/pkg/observability/health"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	promlogger "github.com/trustbloc/walletcore/pkg/observability/metrics/prometheus"
	"github.com/trustbloc/walletcore/pkg/observability/tracing"
	"github.com/trustbloc/walletcore/pkg/restapi/resterr"
	"github.com/trustbloc/walletcore/pkg/restapi/v1/healthcheck"
	"github.com/trustbloc/walletcore/pkg/restapi/v1/mw"
	"github.com/trustbloc/walletcore/pkg/restapi/v1/version"
	walletctrl "github.com/trustbloc/walletcore/pkg/restapi/v1/wallet"
	"github.com/trustbloc/walletcore/pkg/wallet"
)

const (
	healthCheckEndpoint   = "/healthcheck"
	metricsEndpoint       = "/metrics"
	versionEndpoint       = "/version"
	versionSystemEndpoint = "/version/system"

	readHeaderTimeout = 10 * time.Second
)

var logger = log.New("wallet-rest")

type server interface {
	ListenAndServe(host, certFile, keyFile string, handler http.Handler) error
}

// HTTPServer represents an actual HTTP server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation. TLS is used when both
// the certificate and the key are set.
func (s *HTTPServer) ListenAndServe(host, certFile, keyFile string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              host,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if certFile != "" && keyFile != "" {
		return srv.ListenAndServeTLS(certFile, keyFile)
	}

	return srv.ListenAndServe()
}

type startOpts struct {
	version       string
	gitRevision   string
	buildTime     string
	serverVersion string
	server        server
}

// StartOpts configures the start command.
type StartOpts func(opts *startOpts)

// WithVersion sets the wallet version reported by /version.
func WithVersion(version string) StartOpts {
	return func(opts *startOpts) {
		opts.version = version
	}
}

// WithBuildInfo sets the git revision and the build time reported by /version.
func WithBuildInfo(gitRevision, buildTime string) StartOpts {
	return func(opts *startOpts) {
		opts.gitRevision = gitRevision
		opts.buildTime = buildTime
	}
}

// WithServerVersion sets the server version reported by /version/system.
func WithServerVersion(version string) StartOpts {
	return func(opts *startOpts) {
		opts.serverVersion = version
	}
}

// WithHTTPServer replaces the HTTP server.
func WithHTTPServer(srv server) StartOpts {
	return func(opts *startOpts) {
		opts.server = srv
	}
}

// GetStartCmd returns the Cobra start command.
func GetStartCmd(opts ...StartOpts) *cobra.Command {
	startCmd := createStartCmd(opts...)

	createFlags(startCmd)

	return startCmd
}

func createStartCmd(opts ...StartOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start wallet-rest",
		Long:  "Start wallet-rest inside the walletcore",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := getStartupParameters(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return startServer(ctx, params, opts...)
		},
	}
}

func startServer(ctx context.Context, params *startupParameters, opts ...StartOpts) error {
	o := &startOpts{server: &HTTPServer{}}

	for _, opt := range opts {
		opt(o)
	}

	if params.logLevel != "" {
		common.SetDefaultLogLevel(logger, params.logLevel)
	}

	tracingProvider, err := tracing.Initialize(params.tracingParams.exporter,
		tracing.WithServiceName(params.tracingParams.serviceName),
		tracing.WithServiceVersion(o.version),
	)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	defer func() {
		if shutdownErr := tracingProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("Error shutting down tracer provider", log.WithError(shutdownErr))
		}
	}()

	var tracerProvider trace.TracerProvider
	if tracingProvider.Enabled() {
		tracerProvider = tracingProvider.TracerProvider()
	}

	store, err := common.InitActivityStore(ctx, params.dbParameters, tracerProvider, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("Failed to close activity log", log.WithError(closeErr))
		}
	}()

	e, err := buildEchoHandler(params, store, tracingProvider.Enabled(), o)
	if err != nil {
		return err
	}

	logger.Info("Starting wallet-rest server", log.WithURL(params.hostURL))

	err = o.server.ListenAndServe(params.hostURL, params.tlsParameters.serveCertPath,
		params.tlsParameters.serveKeyPath, e)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// nolint: funlen
func buildEchoHandler(
	params *startupParameters,
	store *common.ActivityStore,
	tracingEnabled bool,
	o *startOpts,
) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = resterr.HTTPErrorHandler

	e.Use(echomw.Recover())

	if params.token != "" {
		e.Use(mw.APIKeyAuth(params.token, healthCheckEndpoint, metricsEndpoint, versionEndpoint,
			versionSystemEndpoint))
	}

	rootCAs, err := tlsutils.GetCertPool(params.tlsParameters.systemCertPool, params.tlsParameters.caCerts)
	if err != nil {
		return nil, fmt.Errorf("get cert pool: %w", err)
	}

	timeout := params.httpTimeout
	if timeout == 0 {
		timeout = httputil.DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: rootCAs, MinVersion: tls.VersionTLS12},
		},
	}

	loaderOpts := []jsonld.Opt{jsonld.WithHTTPClient(httputil.NewClient(httpClient))}
	if !params.contextEnableRemote {
		loaderOpts = append(loaderOpts, jsonld.WithRemoteDisabled())
	}

	documentLoader, err := jsonld.NewDocumentLoader(loaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("create document loader: %w", err)
	}

	var metricsLogger metrics.Logger

	if params.metricsProviderName == prometheusMetricsProvider {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		promLogger, promErr := promlogger.NewMetricsLogger(registry)
		if promErr != nil {
			return nil, fmt.Errorf("create prometheus metrics logger: %w", promErr)
		}

		metricsLogger = promLogger

		h := promlogger.NewHandler(registry, promlogger.WithPath(metricsEndpoint))
		e.Add(h.Method(), h.Path(), echo.WrapHandler(h.Handler()))
	}

	versionDetails := wallet.VersionDetails{
		WalletVersion: o.version,
		GitRevision:   o.gitRevision,
		BuildTime:     o.buildTime,
	}

	w := wallet.New(&wallet.Config{
		DIDResolverServerURI: params.universalResolverURL,
		ActivityLogger:       store.Logger,
		MetricsLogger:        metricsLogger,
		DocumentLoader:       documentLoader,
		HTTPClient:           httpClient,
		DisableOpenTelemetry: !tracingEnabled,
		DisableVCProofChecks: params.disableVCProofChecks,
		ClientID:             params.clientID,
		RedirectURI:          params.redirectURI,
		Scopes:               params.scopes,
		SessionCacheSize:     params.sessionCacheSize,
		SessionTTL:           params.sessionTTL,
		Version:              versionDetails,
	})

	walletctrl.NewController(e, wallet.NewDispatcher(w))
	healthcheck.NewController(e, health.Get(store.Health))
	version.NewController(e, version.Config{
		Version:       versionDetails,
		ServerVersion: o.serverVersion,
	})

	return e, nil
}
