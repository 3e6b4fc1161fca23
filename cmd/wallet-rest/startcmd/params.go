/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	cmdutils "github.com/trustbloc/cmdutil-go/pkg/utils/cmd"

	"github.com/trustbloc/walletcore/cmd/common"
	"github.com/trustbloc/walletcore/pkg/observability/tracing"
)

const (
	commonEnvVarUsageText = "Alternatively, this can be set with the following environment variable: "

	hostURLFlagName      = "host-url"
	hostURLFlagShorthand = "u"
	hostURLFlagUsage     = "URL to run the wallet-rest instance on. Format: HostName:Port. " +
		commonEnvVarUsageText + hostURLEnvKey
	hostURLEnvKey = "WALLET_REST_HOST_URL"

	tokenFlagName  = "api-token"
	tokenEnvKey    = "WALLET_REST_API_TOKEN" //nolint: gosec
	tokenFlagUsage = "Check for the api key in the X-API-Key header (optional). " +
		commonEnvVarUsageText + tokenEnvKey

	universalResolverURLFlagName      = "universal-resolver-url"
	universalResolverURLFlagShorthand = "r"
	universalResolverURLFlagUsage     = "Universal Resolver used for DID methods the wallet cannot resolve itself." +
		" Format: HostName:Port. " + commonEnvVarUsageText + universalResolverURLEnvKey
	universalResolverURLEnvKey = "WALLET_REST_UNIVERSAL_RESOLVER_URL"

	httpTimeoutFlagName  = "http-timeout"
	httpTimeoutEnvKey    = "WALLET_REST_HTTP_TIMEOUT"
	httpTimeoutFlagUsage = "Timeout of requests to issuers, verifiers and resolvers. Default: 30s. " +
		commonEnvVarUsageText + httpTimeoutEnvKey

	sessionTTLFlagName  = "session-ttl"
	sessionTTLEnvKey    = "WALLET_REST_SESSION_TTL"
	sessionTTLFlagUsage = "How long an issuance or presentation session is kept. Default: 30m. " +
		commonEnvVarUsageText + sessionTTLEnvKey

	sessionCacheSizeFlagName  = "session-cache-size"
	sessionCacheSizeEnvKey    = "WALLET_REST_SESSION_CACHE_SIZE"
	sessionCacheSizeFlagUsage = "Maximum number of open sessions. Default: 1000. " +
		commonEnvVarUsageText + sessionCacheSizeEnvKey

	clientIDFlagName  = "client-id"
	clientIDEnvKey    = "WALLET_REST_CLIENT_ID"
	clientIDFlagUsage = "OAuth client ID of the wallet. " + commonEnvVarUsageText + clientIDEnvKey

	redirectURIFlagName  = "redirect-uri"
	redirectURIEnvKey    = "WALLET_REST_REDIRECT_URI"
	redirectURIFlagUsage = "Redirect URI of the authorization code flow. " +
		commonEnvVarUsageText + redirectURIEnvKey

	scopesFlagName  = "scopes"
	scopesEnvKey    = "WALLET_REST_SCOPES"
	scopesFlagUsage = "Comma-separated list of scopes requested by the authorization code flow. " +
		commonEnvVarUsageText + scopesEnvKey

	disableVCProofChecksFlagName  = "disable-vc-proof-checks"
	disableVCProofChecksEnvKey    = "WALLET_REST_DISABLE_VC_PROOF_CHECKS"
	disableVCProofChecksFlagUsage = "Skip proof checks of issued credentials and request objects." +
		" Possible values [true] [false]. Defaults to false. " +
		commonEnvVarUsageText + disableVCProofChecksEnvKey

	contextEnableRemoteFlagName  = "context-enable-remote"
	contextEnableRemoteEnvKey    = "WALLET_REST_CONTEXT_ENABLE_REMOTE"
	contextEnableRemoteFlagUsage = "Enables remote JSON-LD contexts to be fetched if not found in the embedded" +
		" contexts. Possible values [true] [false]. Defaults to false. " +
		commonEnvVarUsageText + contextEnableRemoteEnvKey

	tlsSystemCertPoolFlagName  = "tls-systemcertpool"
	tlsSystemCertPoolEnvKey    = "WALLET_REST_TLS_SYSTEMCERTPOOL"
	tlsSystemCertPoolFlagUsage = "Use system certificate pool." +
		" Possible values [true] [false]. Defaults to false if not set. " +
		commonEnvVarUsageText + tlsSystemCertPoolEnvKey

	tlsCACertsFlagName  = "tls-cacerts"
	tlsCACertsEnvKey    = "WALLET_REST_TLS_CACERTS"
	tlsCACertsFlagUsage = "Comma-Separated list of ca certs path. " + commonEnvVarUsageText + tlsCACertsEnvKey

	tlsCertificateFlagName  = "tls-certificate"
	tlsCertificateEnvKey    = "WALLET_REST_TLS_CERTIFICATE"
	tlsCertificateFlagUsage = "TLS certificate for the wallet-rest server. " +
		commonEnvVarUsageText + tlsCertificateEnvKey

	tlsKeyFlagName  = "tls-key"
	tlsKeyEnvKey    = "WALLET_REST_TLS_KEY"
	tlsKeyFlagUsage = "TLS key for the wallet-rest server. " + commonEnvVarUsageText + tlsKeyEnvKey

	metricsProviderFlagName  = "metrics-provider-name"
	metricsProviderEnvKey    = "WALLET_REST_METRICS_PROVIDER_NAME"
	metricsProviderFlagUsage = "The metrics provider name (for example: 'prometheus' etc.). " +
		commonEnvVarUsageText + metricsProviderEnvKey

	tracingProviderFlagName  = "tracing-provider"
	tracingProviderEnvKey    = "WALLET_REST_TRACING_PROVIDER"
	tracingProviderFlagUsage = "The tracing provider (for example, JAEGER). " +
		commonEnvVarUsageText + tracingProviderEnvKey

	tracingServiceNameFlagName  = "tracing-service-name"
	tracingServiceNameEnvKey    = "WALLET_REST_TRACING_SERVICE_NAME"
	tracingServiceNameFlagUsage = "The name of the tracing service. Default: wallet-rest. " +
		commonEnvVarUsageText + tracingServiceNameEnvKey

	prometheusMetricsProvider = "prometheus"
	defaultTracingServiceName = "wallet-rest"
)

type startupParameters struct {
	hostURL              string
	token                string
	logLevel             string
	universalResolverURL string
	httpTimeout          time.Duration
	sessionTTL           time.Duration
	sessionCacheSize     int
	clientID             string
	redirectURI          string
	scopes               []string
	disableVCProofChecks bool
	contextEnableRemote  bool
	metricsProviderName  string
	dbParameters         *common.DBParameters
	tlsParameters        *tlsParameters
	tracingParams        *tracingParams
}

type tlsParameters struct {
	systemCertPool bool
	caCerts        []string
	serveCertPath  string
	serveKeyPath   string
}

type tracingParams struct {
	exporter    tracing.SpanExporterType
	serviceName string
}

// nolint: funlen
func getStartupParameters(cmd *cobra.Command) (*startupParameters, error) {
	hostURL, err := cmdutils.GetUserSetVarFromString(cmd, hostURLFlagName, hostURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	token := cmdutils.GetUserSetOptionalVarFromString(cmd, tokenFlagName, tokenEnvKey)

	loggingLevel := cmdutils.GetUserSetOptionalVarFromString(cmd, common.LogLevelFlagName, common.LogLevelEnvKey)

	universalResolverURL := cmdutils.GetUserSetOptionalVarFromString(cmd, universalResolverURLFlagName,
		universalResolverURLEnvKey)

	httpTimeout, err := getDuration(cmd, httpTimeoutFlagName, httpTimeoutEnvKey, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", httpTimeoutFlagName, err)
	}

	sessionTTL, err := getDuration(cmd, sessionTTLFlagName, sessionTTLEnvKey, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sessionTTLFlagName, err)
	}

	sessionCacheSize, err := getInt(cmd, sessionCacheSizeFlagName, sessionCacheSizeEnvKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sessionCacheSizeFlagName, err)
	}

	disableVCProofChecks, err := getBool(cmd, disableVCProofChecksFlagName, disableVCProofChecksEnvKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", disableVCProofChecksFlagName, err)
	}

	contextEnableRemote, err := getBool(cmd, contextEnableRemoteFlagName, contextEnableRemoteEnvKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", contextEnableRemoteFlagName, err)
	}

	metricsProviderName := cmdutils.GetUserSetOptionalVarFromString(cmd, metricsProviderFlagName,
		metricsProviderEnvKey)
	if metricsProviderName != "" && metricsProviderName != prometheusMetricsProvider {
		return nil, fmt.Errorf("unsupported metrics provider: %s", metricsProviderName)
	}

	dbParams, err := common.DBParams(cmd)
	if err != nil {
		return nil, err
	}

	tlsParams, err := getTLS(cmd)
	if err != nil {
		return nil, err
	}

	tracingParams, err := getTracingParams(cmd)
	if err != nil {
		return nil, err
	}

	return &startupParameters{
		hostURL:              hostURL,
		token:                token,
		logLevel:             loggingLevel,
		universalResolverURL: universalResolverURL,
		httpTimeout:          httpTimeout,
		sessionTTL:           sessionTTL,
		sessionCacheSize:     sessionCacheSize,
		clientID:             cmdutils.GetUserSetOptionalVarFromString(cmd, clientIDFlagName, clientIDEnvKey),
		redirectURI:          cmdutils.GetUserSetOptionalVarFromString(cmd, redirectURIFlagName, redirectURIEnvKey),
		scopes:               cmdutils.GetUserSetOptionalCSVVar(cmd, scopesFlagName, scopesEnvKey),
		disableVCProofChecks: disableVCProofChecks,
		contextEnableRemote:  contextEnableRemote,
		metricsProviderName:  metricsProviderName,
		dbParameters:         dbParams,
		tlsParameters:        tlsParams,
		tracingParams:        tracingParams,
	}, nil
}

func getTLS(cmd *cobra.Command) (*tlsParameters, error) {
	tlsSystemCertPool, err := getBool(cmd, tlsSystemCertPoolFlagName, tlsSystemCertPoolEnvKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tlsSystemCertPoolFlagName, err)
	}

	return &tlsParameters{
		systemCertPool: tlsSystemCertPool,
		caCerts:        cmdutils.GetUserSetOptionalVarFromArrayString(cmd, tlsCACertsFlagName, tlsCACertsEnvKey),
		serveCertPath:  cmdutils.GetUserSetOptionalVarFromString(cmd, tlsCertificateFlagName, tlsCertificateEnvKey),
		serveKeyPath:   cmdutils.GetUserSetOptionalVarFromString(cmd, tlsKeyFlagName, tlsKeyEnvKey),
	}, nil
}

func getTracingParams(cmd *cobra.Command) (*tracingParams, error) {
	exporter := cmdutils.GetUserSetOptionalVarFromString(cmd, tracingProviderFlagName, tracingProviderEnvKey)
	if !tracing.IsExportedSupported(exporter) {
		return nil, fmt.Errorf("unsupported tracing provider: %s", exporter)
	}

	serviceName := cmdutils.GetUserSetOptionalVarFromString(cmd, tracingServiceNameFlagName,
		tracingServiceNameEnvKey)
	if serviceName == "" {
		serviceName = defaultTracingServiceName
	}

	return &tracingParams{
		exporter:    exporter,
		serviceName: serviceName,
	}, nil
}

func getDuration(cmd *cobra.Command, flagName, envKey string,
	defaultDuration time.Duration) (time.Duration, error) {
	timeoutStr := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if timeoutStr == "" {
		return defaultDuration, nil
	}

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return -1, fmt.Errorf("invalid value [%s]: %w", timeoutStr, err)
	}

	return timeout, nil
}

func getInt(cmd *cobra.Command, flagName, envKey string) (int, error) {
	str := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid value [%s]", str)
	}

	return n, nil
}

func getBool(cmd *cobra.Command, flagName, envKey string) (bool, error) {
	str := cmdutils.GetUserSetOptionalVarFromString(cmd, flagName, envKey)
	if str == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid value [%s]: %w", str, err)
	}

	return b, nil
}

func createFlags(startCmd *cobra.Command) {
	common.Flags(startCmd)

	startCmd.Flags().StringP(hostURLFlagName, hostURLFlagShorthand, "", hostURLFlagUsage)
	startCmd.Flags().StringP(tokenFlagName, "", "", tokenFlagUsage)
	startCmd.Flags().StringP(common.LogLevelFlagName, common.LogLevelFlagShorthand, "",
		common.LogLevelPrefixFlagUsage)
	startCmd.Flags().StringP(universalResolverURLFlagName, universalResolverURLFlagShorthand, "",
		universalResolverURLFlagUsage)
	startCmd.Flags().StringP(httpTimeoutFlagName, "", "", httpTimeoutFlagUsage)
	startCmd.Flags().StringP(sessionTTLFlagName, "", "", sessionTTLFlagUsage)
	startCmd.Flags().StringP(sessionCacheSizeFlagName, "", "", sessionCacheSizeFlagUsage)
	startCmd.Flags().StringP(clientIDFlagName, "", "", clientIDFlagUsage)
	startCmd.Flags().StringP(redirectURIFlagName, "", "", redirectURIFlagUsage)
	startCmd.Flags().StringP(scopesFlagName, "", "", scopesFlagUsage)
	startCmd.Flags().StringP(disableVCProofChecksFlagName, "", "", disableVCProofChecksFlagUsage)
	startCmd.Flags().StringP(contextEnableRemoteFlagName, "", "", contextEnableRemoteFlagUsage)
	startCmd.Flags().StringP(tlsSystemCertPoolFlagName, "", "", tlsSystemCertPoolFlagUsage)
	startCmd.Flags().StringArrayP(tlsCACertsFlagName, "", []string{}, tlsCACertsFlagUsage)
	startCmd.Flags().StringP(tlsCertificateFlagName, "", "", tlsCertificateFlagUsage)
	startCmd.Flags().StringP(tlsKeyFlagName, "", "", tlsKeyFlagUsage)
	startCmd.Flags().StringP(metricsProviderFlagName, "", "", metricsProviderFlagUsage)
	startCmd.Flags().StringP(tracingProviderFlagName, "", "", tracingProviderFlagUsage)
	startCmd.Flags().StringP(tracingServiceNameFlagName, "", "", tracingServiceNameFlagUsage)
}
