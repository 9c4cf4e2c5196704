// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"net/http"

	"github.com/xmidt-org/httpaux/erraux"
)

// ErrRecordExists is returned by non-upsert writes whose key is already stored.
var ErrRecordExists = errors.New("record already exists")

// ErrHTTPRecordExists is the client facing form of ErrRecordExists.
var ErrHTTPRecordExists = &erraux.Error{
	Err:  ErrRecordExists,
	Code: http.StatusConflict,
}

// ErrHTTPOpFailed is the client facing error for backend failures whose details
// should not be exposed.
var ErrHTTPOpFailed = &erraux.Error{
	Err:  errors.New("DB operation failed"),
	Code: http.StatusInternalServerError,
}

type BadRequestErr struct {
	Message string
}

func (bre BadRequestErr) Error() string {
	return bre.Message
}

func (bre BadRequestErr) StatusCode() int {
	return http.StatusBadRequest
}

// SanitizedError pairs a backend error with the error clients should see.
type SanitizedError struct {
	Err     error
	ErrHTTP error
}

func (s SanitizedError) Error() string {
	return s.Err.Error()
}

func (s SanitizedError) Unwrap() error {
	return s.Err
}

// StatusCode forwards the status code of the client facing error.
func (s SanitizedError) StatusCode() int {
	var coder interface{ StatusCode() int }
	if errors.As(s.ErrHTTP, &coder) {
		return coder.StatusCode()
	}
	return http.StatusInternalServerError
}

// Sanitize wraps err for clients. ErrRecordExists maps to a conflict, anything
// else to ErrHTTPOpFailed.
func Sanitize(err error) error {
	if err == nil {
		return nil
	}
	var s SanitizedError
	if errors.As(err, &s) {
		return err
	}
	if errors.Is(err, ErrRecordExists) {
		return SanitizedError{Err: err, ErrHTTP: ErrHTTPRecordExists}
	}
	return SanitizedError{Err: err, ErrHTTP: ErrHTTPOpFailed}
}
