/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resterr renders errors of the REST API.
package resterr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"

	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("rest-err")

//nolint:gochecknoglobals
var categoryStatus = map[walleterror.Category]int{
	walleterror.CategoryProtocol:           http.StatusBadRequest,
	walleterror.CategoryState:              http.StatusConflict,
	walleterror.CategoryExternalDependency: http.StatusBadGateway,
	walleterror.CategoryInputRejected:      http.StatusBadRequest,
	walleterror.CategoryCredentialTrust:    http.StatusUnprocessableEntity,
	walleterror.CategoryDisplayMetadata:    http.StatusUnprocessableEntity,
	walleterror.CategoryIndex:              http.StatusNotFound,
	walleterror.CategorySystem:             http.StatusInternalServerError,
}

//nolint:gochecknoglobals
var codeStatus = map[walleterror.Code]int{
	walleterror.SessionNotFoundError:  http.StatusNotFound,
	walleterror.UnknownOperationError: http.StatusNotFound,
}

// HTTPErrorHandler writes err as a {code, category, details} triple. Errors raised by echo keep
// their status.
func HTTPErrorHandler(err error, c echo.Context) {
	code, body := processError(err)

	logger.Errorc(c.Request().Context(), "Request failed",
		log.WithURL(c.Request().RequestURI), zap.Int("status", code), log.WithError(err))

	sendResponse(c, code, body)
}

// StatusCode returns the HTTP status an error is reported with.
func StatusCode(triple *walleterror.Triple) int {
	if status, ok := codeStatus[triple.Code]; ok {
		return status
	}

	if status, ok := categoryStatus[triple.Category]; ok {
		return status
	}

	return http.StatusInternalServerError
}

func sendResponse(c echo.Context, code int, body interface{}) {
	if c.Response().Committed {
		return
	}

	var err error

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}

	if err != nil {
		logger.Errorc(c.Request().Context(), "Failed to write http response", log.WithError(err))
	}
}

func processError(err error) (int, *walleterror.Triple) {
	var httpErr *echo.HTTPError

	if errors.As(err, &httpErr) && walleterror.CodeOf(err) == "" {
		code := walleterror.InvalidArgumentError

		switch {
		case httpErr.Code >= http.StatusInternalServerError:
			code = walleterror.SystemError
		case httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed:
			code = walleterror.UnknownOperationError
		}

		details := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			details = msg
		}

		return httpErr.Code, &walleterror.Triple{Code: code, Category: code.Category(), Details: details}
	}

	triple := walleterror.ToTriple(err)

	return StatusCode(triple), triple
}
