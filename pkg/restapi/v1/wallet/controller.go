/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination controller_mocks_test.go -self_package mocks -package wallet_test -source=controller.go -mock_names dispatcher=MockDispatcher

package wallet

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const maxRequestSize = 10 << 20

type router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

type dispatcher interface {
	Dispatch(ctx context.Context, operation string, payload []byte) (interface{}, error)
	Operations() []string
}

// Controller exposes wallet operations as POST /wallet/v1/{operation}.
type Controller struct {
	dispatcher dispatcher
}

type operationsResponse struct {
	Operations []string `json:"operations"`
}

// NewController registers the wallet routes.
func NewController(r router, d dispatcher) *Controller {
	c := &Controller{dispatcher: d}

	r.GET("/wallet/v1/operations", c.GetOperations)
	r.POST("/wallet/v1/:operation", c.PostOperation)

	return c
}

// GetOperations lists the supported operations.
// GET /wallet/v1/operations.
func (c *Controller) GetOperations(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, operationsResponse{Operations: c.dispatcher.Operations()})
}

// PostOperation runs an operation with the request body as its JSON request.
// POST /wallet/v1/{operation}.
func (c *Controller) PostOperation(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxRequestSize))
	if err != nil {
		return walleterror.New(walleterror.InvalidArgumentError, fmt.Errorf("read request body: %w", err)).
			WithComponent(walleterror.WalletComponent)
	}

	resp, err := c.dispatcher.Dispatch(ctx.Request().Context(), ctx.Param("operation"), body)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, resp)
}
