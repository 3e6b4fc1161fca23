/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//go:generate mockgen -destination controller_mocks_test.go -self_package mocks -package version_test -source=controller.go -mock_names router=MockRouter

package version

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trustbloc/walletcore/pkg/wallet"
)

type router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

type Config struct {
	Version       wallet.VersionDetails
	ServerVersion string
}

type Controller struct {
	version       wallet.VersionDetails
	serverVersion string
}

type serverVersionResponse struct {
	Version string `json:"version"`
}

func NewController(router router, cfg Config) *Controller {
	c := &Controller{
		version:       cfg.Version,
		serverVersion: cfg.ServerVersion,
	}

	router.GET("/version", c.Version)
	router.GET("/version/system", c.ServerVersion)

	return c
}

// Version returns the wallet build details.
func (c *Controller) Version(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.version)
}

func (c *Controller) ServerVersion(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, serverVersionResponse{Version: c.serverVersion})
}
