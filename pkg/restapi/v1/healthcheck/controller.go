/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck

import (
	"github.com/alexliesenfeld/health"
	"github.com/labstack/echo/v4"

	healthchecks "github.com/trustbloc/walletcore/pkg/observability/health"
)

type router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Controller for health check API.
type Controller struct {
	handler echo.HandlerFunc
}

// NewController registers GET /healthcheck reporting the given checks.
func NewController(r router, checks []health.Check) *Controller {
	c := &Controller{handler: echo.WrapHandler(healthchecks.NewHandler(checks))}

	r.GET("/healthcheck", c.GetHealthcheck)

	return c
}

// GetHealthcheck returns the health check status.
// GET /healthcheck.
func (c *Controller) GetHealthcheck(ctx echo.Context) error {
	return c.handler(ctx)
}
