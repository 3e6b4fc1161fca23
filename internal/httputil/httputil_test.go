/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httputil_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/trustbloc/walletcore/internal/httputil"
)

func TestClient(t *testing.T) {
	var received *http.Request
	var receivedBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)

		received = r
		receivedBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	t.Run("get with additional headers", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Wallet", "test")

		c := httputil.NewClient(srv.Client(), httputil.WithAdditionalHeaders(headers))

		resp, err := c.Get(context.Background(), srv.URL+"/metadata")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `{"ok":true}`, string(resp.Body))
		require.Equal(t, "test", received.Header.Get("X-Wallet"))
		require.Equal(t, http.MethodGet, received.Method)
	})

	t.Run("post form with token", func(t *testing.T) {
		c := httputil.NewClient(srv.Client())

		_, err := c.PostForm(context.Background(), srv.URL+"/token", url.Values{"a": {"b"}}, "token123")
		require.NoError(t, err)
		require.Equal(t, "Bearer token123", received.Header.Get("Authorization"))
		require.Equal(t, "application/x-www-form-urlencoded", received.Header.Get("Content-Type"))
		require.Equal(t, "a=b", receivedBody)
	})

	t.Run("post json", func(t *testing.T) {
		c := httputil.NewClient(srv.Client())

		_, err := c.PostJSON(context.Background(), srv.URL+"/credential", []byte(`{"x":1}`), "")
		require.NoError(t, err)
		require.Empty(t, received.Header.Get("Authorization"))
		require.Equal(t, "application/json", received.Header.Get("Content-Type"))
		require.Equal(t, `{"x":1}`, receivedBody)
	})

	t.Run("trace headers", func(t *testing.T) {
		otel.SetTextMapPropagator(propagation.TraceContext{})

		ctx, span := tracesdk.NewTracerProvider().Tracer("test").Start(context.Background(), "span")
		defer span.End()

		_, err := httputil.NewClient(srv.Client()).Get(ctx, srv.URL)
		require.NoError(t, err)
		require.NotEmpty(t, received.Header.Get("Traceparent"))

		_, err = httputil.NewClient(srv.Client(), httputil.WithoutTraceHeaders()).Get(ctx, srv.URL)
		require.NoError(t, err)
		require.Empty(t, received.Header.Get("Traceparent"))
	})

	t.Run("std client", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Wallet", "std")

		c := httputil.NewClient(srv.Client(), httputil.WithAdditionalHeaders(headers)).StdClient()

		resp, err := c.Get(srv.URL)
		require.NoError(t, err)
		httputil.CloseResponseBody(resp.Body)
		require.Equal(t, "std", received.Header.Get("X-Wallet"))
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := httputil.NewClient(nil).Get(context.Background(), "http://127.0.0.1:1/unreachable")
		require.Error(t, err)
		require.Contains(t, err.Error(), "send GET request")
		require.ErrorIs(t, err, httputil.ErrUnreachable)
	})
}

func TestCheckStatus(t *testing.T) {
	resp := &httputil.Response{StatusCode: http.StatusCreated, Body: []byte("created")}

	require.NoError(t, resp.CheckStatus(http.StatusOK, http.StatusCreated))

	err := resp.CheckStatus()
	require.Error(t, err)

	var statusErr *httputil.StatusError

	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusCreated, statusErr.StatusCode)
	require.Contains(t, err.Error(), "got status code 201 with response body created")
}
