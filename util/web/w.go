// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package web aids in writing HTTP handlers.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// WriteError writes a plain text error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, formatMsg string, params ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, formatMsg, params...)
	io.WriteString(w, "\n")
}

// HTTPWriter is implemented by values that know how to write themselves as a
// complete HTTP response.
type HTTPWriter interface {
	HTTPWrite(w http.ResponseWriter)
}

// Write writes the first non-nil value in vals as the response, so that a
// handler can do web.Write(w, err, result). Strings and byte slices are sent
// as text, HTTPWriters write themselves, errors become a 500 response, and
// anything else is encoded as JSON. If every value is nil, the response is a
// 204.
func Write(w http.ResponseWriter, vals ...interface{}) {
	for _, val := range vals {
		if val == nil {
			continue
		}
		switch tv := val.(type) {
		case []byte:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write(tv)
		case string:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			io.WriteString(w, tv)
		case HTTPWriter:
			tv.HTTPWrite(w)
		case error:
			WriteError(w, http.StatusInternalServerError, "Unexpected error: %s", tv)
		default:
			w.Header().Set("Content-Type", "application/json")
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(tv); err != nil {
				log.WithError(err).Warn("Unable to write JSON response")
			}
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIError is an error destined to be an HTTP response, with both a message
// and a status code. Construct one with NewError.
type APIError struct {
	statusCode int
	message    string
}

// NewError returns an APIError with the given status code and formatted
// message.
func NewError(statusCode int, formatMsg string, formatParams ...interface{}) error {
	return &APIError{
		statusCode: statusCode,
		message:    fmt.Sprintf(formatMsg, formatParams...),
	}
}

// Error implements the error interface.
func (a *APIError) Error() string {
	return a.message
}

// HTTPWrite implements HTTPWriter.
func (a *APIError) HTTPWrite(w http.ResponseWriter) {
	WriteError(w, a.statusCode, "%s", a.message)
}

// Ensure APIError is a HTTPWriter.
var _ HTTPWriter = &APIError{}
