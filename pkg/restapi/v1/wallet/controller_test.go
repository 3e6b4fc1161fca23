/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/restapi/resterr"
	"github.com/trustbloc/walletcore/pkg/restapi/v1/wallet"
	walletsdk "github.com/trustbloc/walletcore/pkg/wallet"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

func TestNewController(t *testing.T) {
	r := NewMockrouter(gomock.NewController(t))

	r.EXPECT().GET("/wallet/v1/operations", gomock.Any()).Return(nil)
	r.EXPECT().POST("/wallet/v1/:operation", gomock.Any()).Return(nil)

	require.NotNil(t, wallet.NewController(r, NewMockDispatcher(gomock.NewController(t))))
}

func TestController_PostOperation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		d := NewMockDispatcher(gomock.NewController(t))
		d.EXPECT().Dispatch(gomock.Any(), "createDID", []byte(`{"didMethodType":"key"}`)).
			Return(&walletsdk.CreateDIDResponse{DID: "did:key:z6Mk"}, nil)

		rec := serve(t, d, http.MethodPost, "/wallet/v1/createDID", `{"didMethodType":"key"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"did":"did:key:z6Mk","didDoc":null}`, rec.Body.String())
	})

	t.Run("wallet error", func(t *testing.T) {
		d := NewMockDispatcher(gomock.NewController(t))
		d.EXPECT().Dispatch(gomock.Any(), "requestCredential", gomock.Any()).
			Return(nil, walleterror.Newf(walleterror.InvalidPinError, "issuer rejected the PIN"))

		rec := serve(t, d, http.MethodPost, "/wallet/v1/requestCredential", `{"sessionID":"1","otp":"0"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var triple walleterror.Triple
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &triple))
		require.Equal(t, walleterror.InvalidPinError, triple.Code)
		require.Equal(t, walleterror.CategoryInputRejected, triple.Category)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := serve(t, NewMockDispatcher(gomock.NewController(t)), http.MethodGet, "/wallet/v2/createDID", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), string(walleterror.UnknownOperationError))
	})
}

func TestController_GetOperations(t *testing.T) {
	d := NewMockDispatcher(gomock.NewController(t))
	d.EXPECT().Operations().Return([]string{"authorize", "createDID"})

	rec := serve(t, d, http.MethodGet, "/wallet/v1/operations", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"operations":["authorize","createDID"]}`, rec.Body.String())
}

func TestController_Wallet(t *testing.T) {
	d := walletsdk.NewDispatcher(walletsdk.New(&walletsdk.Config{
		Version: walletsdk.VersionDetails{WalletVersion: "1.0.0"},
	}))

	rec := serve(t, d, http.MethodPost, "/wallet/v1/createDID", `{"didMethodType":"jwk"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created walletsdk.CreateDIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, strings.HasPrefix(created.DID, "did:jwk:"))

	rec = serve(t, d, http.MethodPost, "/wallet/v1/getVersionDetails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"walletVersion":"1.0.0"`)

	rec = serve(t, d, http.MethodPost, "/wallet/v1/issuerURI", `{"sessionID":"unknown"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), string(walleterror.SessionNotFoundError))

	rec = serve(t, d, http.MethodPost, "/wallet/v1/formatDisk", `{}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), string(walleterror.UnknownOperationError))

	rec = serve(t, d, http.MethodPost, "/wallet/v1/createDID", `{"didMethodType":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), string(walleterror.InvalidArgumentError))
}

type walletDispatcher interface {
	Dispatch(ctx context.Context, operation string, payload []byte) (interface{}, error)
	Operations() []string
}

func serve(t *testing.T, d walletDispatcher, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.HTTPErrorHandler = resterr.HTTPErrorHandler

	wallet.NewController(e, d)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}
