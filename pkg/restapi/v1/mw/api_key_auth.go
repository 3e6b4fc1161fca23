/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const header = "X-API-Key"

// APIKeyAuth returns a middleware that requires the API key in the X-API-Key header on every request
// except those whose path ends with one of publicPaths.
func APIKeyAuth(apiKey string, publicPaths ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := strings.ToLower(c.Request().URL.Path)

			for _, p := range publicPaths {
				if strings.HasSuffix(path, p) {
					return next(c)
				}
			}

			if subtle.ConstantTimeCompare([]byte(c.Request().Header.Get(header)), []byte(apiKey)) != 1 {
				return &echo.HTTPError{
					Code:    http.StatusUnauthorized,
					Message: "Unauthorized",
				}
			}

			return next(c)
		}
	}
}
