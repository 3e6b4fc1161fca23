/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexliesenfeld/health"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/restapi/v1/healthcheck"
)

func TestController_GetHealthcheck(t *testing.T) {
	t.Run("200 OK", func(t *testing.T) {
		rec := serve(t, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"up"`)
	})

	t.Run("503 Service Unavailable", func(t *testing.T) {
		rec := serve(t, []health.Check{{
			Name:  "redis",
			Check: func(context.Context) error { return errors.New("connection refused") },
		}})

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"down"`)
	})
}

func serve(t *testing.T, checks []health.Check) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	healthcheck.NewController(e, checks)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	return rec
}
