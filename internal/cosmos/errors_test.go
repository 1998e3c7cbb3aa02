// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cosmos

import (
	"strings"
	"testing"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "cosmos json with activity id suffix",
			body: `{"code":"Forbidden","message":"Request blocked by Auth : principal lacks RBAC permissions.\r\nActivityId: c93b2c4e, Microsoft.Azure.Documents.Common/2.14.0"}`,
			want: "Request blocked by Auth : principal lacks RBAC permissions.",
		},
		{
			name: "capitalized Message field",
			body: `{"Message": "Something failed"}`,
			want: "Something failed",
		},
		{
			name: "plain text body",
			body: "something went wrong",
			want: "something went wrong",
		},
		{
			name: "json without message field",
			body: `{"error": "oops"}`,
			want: `{"error": "oops"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractMessage(tt.body); got != tt.want {
				t.Errorf("extractMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusErrorForbidden(t *testing.T) {
	err := statusError(403, `{"message":"denied"}`)
	permErr, ok := err.(*PermissionError)
	if !ok {
		t.Fatalf("statusError(403) = %T, want *PermissionError", err)
	}
	if !strings.Contains(permErr.Error(), "Hint:") {
		t.Errorf("Error() = %q, want embedded hint", permErr.Error())
	}
}

func TestStatusErrorGeneric(t *testing.T) {
	err := statusError(429, "throttled")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("statusError(429) = %T, want *APIError", err)
	}
	if apiErr.Status != 429 || apiErr.Message != "throttled" {
		t.Errorf("APIError = %+v", apiErr)
	}
}
