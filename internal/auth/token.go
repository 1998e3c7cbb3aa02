// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth resolves the Cosmos DB data-plane bearer token used to sign
// requests. Tokens are acquired out of band (e.g. `az account get-access-token`)
// and handed to cosq either through the COSQ_TOKEN environment variable or by
// storing them in the OS keychain with `cosq auth set-token`. The environment
// variable always wins so CI jobs can override a developer's stored token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cosq/cli/internal/keychain"
)

// EnvToken is the environment variable consulted before the OS keychain.
const EnvToken = "COSQ_TOKEN"

// ErrNoToken is returned when neither the environment nor the keychain has a token.
var ErrNoToken = errors.New("no data-plane token configured\n\nHint: export COSQ_TOKEN or run `cosq auth set-token`")

// TokenSource yields the bearer token for data-plane requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static wraps a fixed token as a TokenSource. Used in tests and for
// tokens passed explicitly on the command line.
type Static string

// Token returns the wrapped token.
func (s Static) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Default resolves tokens from the environment first, then the OS keychain.
type Default struct{}

// Token returns the first configured token, or ErrNoToken.
func (Default) Token(ctx context.Context) (string, error) {
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		return env, nil
	}

	km, err := keychain.GetManager()
	if err != nil {
		return "", fmt.Errorf("secure storage unavailable: %w", err)
	}
	token, err := km.LoadToken()
	if err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Source describes where the active token came from, for `cosq auth status`.
func Source() string {
	if strings.TrimSpace(os.Getenv(EnvToken)) != "" {
		return "environment (" + EnvToken + ")"
	}
	return "OS keychain"
}
