/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var logger = log.New("httputil")

// DefaultTimeout is used for HTTP clients created on behalf of the caller.
const DefaultTimeout = 30 * time.Second

const (
	contentTypeHeader = "Content-Type"
	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeJSON   = "application/json"
)

// ErrUnreachable marks transport failures: the remote party could not be reached or did not answer.
var ErrUnreachable = errors.New("endpoint unreachable")

// maxErrorBodySize bounds the body quoted in StatusError messages.
const maxErrorBodySize = 512

// HTTPClient is the subset of *http.Client used by the wallet.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client decorates an HTTPClient with additional headers and trace context propagation.
type Client struct {
	httpClient        HTTPClient
	additionalHeaders http.Header
	traceHeaders      bool
}

type Opt func(c *Client)

// WithAdditionalHeaders adds the given headers to every request.
func WithAdditionalHeaders(headers http.Header) Opt {
	return func(c *Client) {
		c.additionalHeaders = headers.Clone()
	}
}

// WithoutTraceHeaders disables the traceparent/tracestate headers.
func WithoutTraceHeaders() Opt {
	return func(c *Client) {
		c.traceHeaders = false
	}
}

// NewClient returns a new Client. If httpClient is nil, an *http.Client with DefaultTimeout is used.
func NewClient(httpClient HTTPClient, opts ...Opt) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	c := &Client{
		httpClient:   httpClient,
		traceHeaders: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do sends the request after decorating it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for name, values := range c.additionalHeaders {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	if c.traceHeaders {
		otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	}

	return c.httpClient.Do(req)
}

// StdClient returns an *http.Client that routes all requests through c.
func (c *Client) StdClient() *http.Client {
	return &http.Client{Transport: roundTripperFunc(c.Do)}
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	return c.send(ctx, http.MethodGet, targetURL, "", "", nil)
}

// PostForm sends a form-urlencoded POST request. An empty token sends no Authorization header.
func (c *Client) PostForm(ctx context.Context, targetURL string, form url.Values, token string) (*Response, error) {
	return c.send(ctx, http.MethodPost, targetURL, contentTypeForm, token, strings.NewReader(form.Encode()))
}

// PostJSON sends a JSON POST request. An empty token sends no Authorization header.
func (c *Client) PostJSON(ctx context.Context, targetURL string, body []byte, token string) (*Response, error) {
	return c.send(ctx, http.MethodPost, targetURL, contentTypeJSON, token, bytes.NewReader(body))
}

func (c *Client) send(
	ctx context.Context,
	method, targetURL, contentType, token string,
	body io.Reader,
) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request to %s: %w", method, targetURL, err)
	}

	if contentType != "" {
		req.Header.Set(contentTypeHeader, contentType)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send %s request to %s: %w", ErrUnreachable, method, targetURL, err)
	}

	defer CloseResponseBody(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body from %s: %w", ErrUnreachable, targetURL, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// StatusError is returned by CheckStatus for unexpected status codes.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}

	return fmt.Sprintf("expected status code %d but got status code %d with response body %s",
		http.StatusOK, e.StatusCode, body)
}

// CheckStatus returns a *StatusError unless the response has one of the accepted status codes.
// With no codes given, 200 is expected.
func (r *Response) CheckStatus(accepted ...int) error {
	if len(accepted) == 0 {
		accepted = []int{http.StatusOK}
	}

	for _, code := range accepted {
		if r.StatusCode == code {
			return nil
		}
	}

	return &StatusError{StatusCode: r.StatusCode, Body: r.Body}
}

// CloseResponseBody closes the response body.
func CloseResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Warn("Failed to close response body", log.WithError(err))
	}
}

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req.Clone(req.Context()))
}
