// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"regexp"
)

var (
	reToken  = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reAadSig = regexp.MustCompile(`(?i)(sig%3D)([^&\s]+)`) // aad auth header signature
)

// Mask replaces sensitive values in the input string with "***" so bearer
// tokens and signed authorization headers never reach debug logs.
func Mask(s string) string {
	out := s
	out = reToken.ReplaceAllString(out, "$1***")
	out = reAadSig.ReplaceAllString(out, "$1***")
	return out
}
