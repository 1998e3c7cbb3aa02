// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cosmos

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// permissionHint is shown alongside access-denied responses; the usual cause
// is a principal without data-plane RBAC roles on the account.
const permissionHint = "You may not have data plane access. Check your Cosmos DB RBAC roles."

// APIError is a non-success response from the data-plane API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// PermissionError is an access-denied response, surfaced separately from
// generic API errors so callers can show remediation guidance.
type PermissionError struct {
	Message string
	Hint    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("access denied: %s\n\nHint: %s", e.Message, e.Hint)
}

// statusError converts a non-success response into the matching typed error.
func statusError(status int, body string) error {
	if status == http.StatusForbidden {
		return &PermissionError{Message: extractMessage(body), Hint: permissionHint}
	}
	return &APIError{Status: status, Message: extractMessage(body)}
}

// extractMessage pulls a human-readable message out of a Cosmos DB JSON error
// body. Falls back to the raw body if it is not JSON or has no message field.
func extractMessage(body string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return body
	}

	raw, ok := payload["message"]
	if !ok {
		raw, ok = payload["Message"]
	}
	if !ok {
		return body
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return body
	}

	// Cosmos DB often appends "\r\nActivityId: ..."; strip it.
	msg, _, _ = strings.Cut(msg, "\r\nActivityId:")
	return strings.TrimSpace(msg)
}
