// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// PipeNamePrefix is the reserved prefix every generated endpoint name
// begins with.
const PipeNamePrefix = `\\.\pipe\`

// maxNameLength bounds the total endpoint name length.
const maxNameLength = 256

// randomSuffixBytes is the number of random bytes mixed into each
// generated endpoint name before base64 encoding.
const randomSuffixBytes = 18

// GenerateEndpointName produces a unique local endpoint name of the form
// `\\.\pipe\<product>-<rand>`. product is normally the short product name
// the rest of the service uses for its data directory and log file.
func GenerateEndpointName(product string) (string, error) {
	buf := make([]byte, randomSuffixBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ipc: generate random suffix: %w", err)
	}
	suffix := base64.RawURLEncoding.EncodeToString(buf)
	// base64.RawURLEncoding already avoids '/' but keep the substitution
	// explicit and resilient to encoding changes, since the pipe-path
	// syntax this feeds is load-bearing, not an implementation detail of
	// this function.
	suffix = strings.NewReplacer("/", "_", "\\", "_").Replace(suffix)

	name := PipeNamePrefix + product + "-" + suffix
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name, nil
}
