/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/observability/metrics"
	"github.com/trustbloc/walletcore/pkg/observability/tracing"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// Operation names accepted by the dispatcher.
const (
	OpCreateDID                        = "createDID"
	OpFetchDID                         = "fetchDID"
	OpAuthorize                        = "authorize"
	OpIssuerURI                        = "issuerURI"
	OpRequestCredential                = "requestCredential"
	OpSerializeDisplayData             = "serializeDisplayData"
	OpResolveCredentialDisplay         = "resolveCredentialDisplay"
	OpGetCredID                        = "getCredID"
	OpGetIssuerID                      = "getIssuerID"
	OpWellKnownDIDConfig               = "wellKnownDidConfig"
	OpProcessAuthorizationRequest      = "processAuthorizationRequest"
	OpGetMatchedSubmissionRequirements = "getMatchedSubmissionRequirements"
	OpVerifierDisplayData              = "verifierDisplayData"
	OpPresentCredential                = "presentCredential"
	OpCredentialStatusVerifier         = "credentialStatusVerifier"
	OpActivityLogger                   = "activityLogger"
	OpParseActivities                  = "parseActivities"
	OpGetVersionDetails                = "getVersionDetails"
)

type handler func(ctx context.Context, payload []byte) (interface{}, error)

// Dispatcher runs wallet operations named by string with JSON encoded requests. Requests are decoded
// once into the typed request of the operation.
type Dispatcher struct {
	wallet   *Wallet
	handlers map[string]handler
}

// NewDispatcher returns a dispatcher for the operations of w.
func NewDispatcher(w *Wallet) *Dispatcher {
	return &Dispatcher{
		wallet: w,
		handlers: map[string]handler{
			OpCreateDID:                        handle(w, OpCreateDID, (*Wallet).CreateDID),
			OpFetchDID:                         handle(w, OpFetchDID, (*Wallet).FetchDID),
			OpAuthorize:                        handle(w, OpAuthorize, (*Wallet).Authorize),
			OpIssuerURI:                        handle(w, OpIssuerURI, (*Wallet).IssuerURI),
			OpRequestCredential:                handle(w, OpRequestCredential, (*Wallet).RequestCredential),
			OpSerializeDisplayData:             handle(w, OpSerializeDisplayData, (*Wallet).SerializeDisplayData),
			OpResolveCredentialDisplay:         handle(w, OpResolveCredentialDisplay, (*Wallet).ResolveCredentialDisplay),
			OpGetCredID:                        handle(w, OpGetCredID, (*Wallet).GetCredID),
			OpGetIssuerID:                      handle(w, OpGetIssuerID, (*Wallet).GetIssuerID),
			OpWellKnownDIDConfig:               handle(w, OpWellKnownDIDConfig, (*Wallet).WellKnownDIDConfig),
			OpProcessAuthorizationRequest:      handle(w, OpProcessAuthorizationRequest, (*Wallet).ProcessAuthorizationRequest),
			OpGetMatchedSubmissionRequirements: handle(w, OpGetMatchedSubmissionRequirements, (*Wallet).GetMatchedSubmissionRequirements),
			OpVerifierDisplayData:              handle(w, OpVerifierDisplayData, (*Wallet).VerifierDisplayData),
			OpPresentCredential:                handle(w, OpPresentCredential, (*Wallet).PresentCredential),
			OpCredentialStatusVerifier:         handle(w, OpCredentialStatusVerifier, (*Wallet).CredentialStatusVerifier),
			OpParseActivities:                  handle(w, OpParseActivities, (*Wallet).ParseActivities),
			OpActivityLogger: func(ctx context.Context, _ []byte) (interface{}, error) {
				return w.ActivityLogger(ctx)
			},
			OpGetVersionDetails: func(context.Context, []byte) (interface{}, error) {
				return w.GetVersionDetails(), nil
			},
		},
	}
}

// Operations returns the supported operation names in alphabetical order.
func (d *Dispatcher) Operations() []string {
	ops := lo.Keys(d.handlers)
	sort.Strings(ops)

	return ops
}

// Dispatch runs the named operation. An empty payload is an empty request.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload []byte) (interface{}, error) {
	h, ok := d.handlers[operation]
	if !ok {
		return nil, walleterror.Newf(walleterror.UnknownOperationError, "unknown operation %q", operation).
			WithComponent(walleterror.WalletComponent)
	}

	defer metrics.Record(d.wallet.metricsLogger, operation, "", time.Now())

	ctx, span := tracing.Tracer().Start(ctx, "wallet."+operation,
		trace.WithAttributes(tracing.OperationAttribute.String(operation)))
	defer span.End()

	resp, err := h(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(walleterror.ToTriple(err).Code))

		logger.Debugc(ctx, "Operation failed", logfields.WithOperation(operation),
			logfields.WithAdditionalMessage(err.Error()))

		return nil, err
	}

	return resp, nil
}

func handle[Req, Resp any](
	w *Wallet,
	operation string,
	fn func(*Wallet, context.Context, *Req) (*Resp, error),
) handler {
	return func(ctx context.Context, payload []byte) (interface{}, error) {
		req := new(Req)

		if len(bytes.TrimSpace(payload)) > 0 {
			if err := json.Unmarshal(payload, req); err != nil {
				return nil, walleterror.New(walleterror.InvalidArgumentError,
					fmt.Errorf("decode %s request: %w", operation, err)).
					WithComponent(walleterror.WalletComponent).WithOperation(operation)
			}
		}

		return fn(w, ctx, req)
	}
}
