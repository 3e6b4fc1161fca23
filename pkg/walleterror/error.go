/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walleterror

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is the error type returned by every wallet operation.
type Error struct {
	ErrorCode      Code
	ErrorComponent Component
	Operation      string
	Err            error
}

// Triple is the form in which an error crosses the operation boundary.
type Triple struct {
	Code     Code     `json:"code"`
	Category Category `json:"category"`
	Details  string   `json:"details"`
}

// New returns a new Error with the given code wrapping err.
func New(code Code, err error) *Error {
	if err == nil {
		err = errors.New(strings.ToLower(strings.ReplaceAll(string(code), "_", " ")))
	}

	return &Error{ErrorCode: code, Err: err}
}

// Newf returns a new Error with the given code and a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Errorf(format, args...))
}

func (e *Error) WithComponent(component Component) *Error {
	e.ErrorComponent = component

	return e
}

func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation

	return e
}

// Error returns the error in the CATEGORY(CODE)[component; operation]: details form.
func (e *Error) Error() string {
	var description []string

	if e.ErrorComponent != "" {
		description = append(description, fmt.Sprintf("component: %s", e.ErrorComponent))
	}

	if e.Operation != "" {
		description = append(description, fmt.Sprintf("operation: %s", e.Operation))
	}

	prefix := fmt.Sprintf("%s(%s)", e.Category(), e.ErrorCode)

	if len(description) > 0 {
		prefix += "[" + strings.Join(description, "; ") + "]"
	}

	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Code() Code {
	return e.ErrorCode
}

func (e *Error) Category() Category {
	return e.ErrorCode.Category()
}

// Details returns the human-readable cause of the error.
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.ErrorCode == e.ErrorCode
}

// Triple returns the boundary form of the error.
func (e *Error) Triple() *Triple {
	return &Triple{
		Code:     e.ErrorCode,
		Category: e.Category(),
		Details:  e.Details(),
	}
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Triple())
}

// Error implements error so a decoded triple can be returned as is.
func (t *Triple) Error() string {
	return fmt.Sprintf("%s(%s): %s", t.Category, t.Code, t.Details)
}

// ToTriple converts any error into its boundary form. Errors that carry no wallet code are reported
// as SYSTEM_ERROR so that nothing crossing the boundary is left unclassified.
func ToTriple(err error) *Triple {
	if err == nil {
		return nil
	}

	var walletErr *Error
	if errors.As(err, &walletErr) {
		return walletErr.Triple()
	}

	var triple *Triple
	if errors.As(err, &triple) {
		return triple
	}

	return &Triple{
		Code:     SystemError,
		Category: SystemError.Category(),
		Details:  err.Error(),
	}
}

// CodeOf returns the code carried by err or an empty code.
func CodeOf(err error) Code {
	var walletErr *Error
	if errors.As(err, &walletErr) {
		return walletErr.ErrorCode
	}

	var triple *Triple
	if errors.As(err, &triple) {
		return triple.Code
	}

	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
