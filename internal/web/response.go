// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"prikit/internal/redactors"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error            string   `json:"error"`
	SupportedTypes   []string `json:"supported_types,omitempty"`
	SupportedMethods []string `json:"supported_methods,omitempty"`
}

// sendJSON writes v as the response body with statusCode
func (s *Server) sendJSON(responseWriter http.ResponseWriter, statusCode int, v interface{}) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	if err := json.NewEncoder(responseWriter).Encode(v); err != nil {
		s.logEvent("encode_response", false, map[string]interface{}{"error": err.Error()})
	}
}

// sendError sends a 400 error response
func (s *Server) sendError(responseWriter http.ResponseWriter, message string) {
	s.sendErrorWithStatus(responseWriter, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (s *Server) sendErrorWithStatus(responseWriter http.ResponseWriter, message string, statusCode int) {
	s.sendJSON(responseWriter, statusCode, errorResponse{Error: message})
}

// sendProcessingError maps an anonymizer error onto a status code. Anything
// outside the validation taxonomy is reported as a server error.
func (s *Server) sendProcessingError(responseWriter http.ResponseWriter, err error) {
	if redactors.IsValidation(err) {
		s.sendError(responseWriter, err.Error())
		return
	}
	s.logEvent("request_failed", false, map[string]interface{}{"error": err.Error()})
	s.sendErrorWithStatus(responseWriter, "server error: "+err.Error(), http.StatusInternalServerError)
}

// isBodyTooLarge reports whether err came from an exhausted MaxBytesReader
func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
