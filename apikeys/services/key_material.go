// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	keyScheme    = "ik"
	prefixBytes  = 4
	secretBytes  = 32
	prefixLength = prefixBytes * 2
	secretLength = secretBytes * 2
)

// generateKey returns a raw key of the form ik_<prefix>_<secret> along with its parts
func generateKey() (raw, prefix, secret string, err error) {
	p := make([]byte, prefixBytes)
	if _, err = rand.Read(p); err != nil {
		return "", "", "", fmt.Errorf("generate key prefix: %w", err)
	}
	s := make([]byte, secretBytes)
	if _, err = rand.Read(s); err != nil {
		return "", "", "", fmt.Errorf("generate key secret: %w", err)
	}
	prefix = hex.EncodeToString(p)
	secret = hex.EncodeToString(s)
	return keyScheme + "_" + prefix + "_" + secret, prefix, secret, nil
}

// splitKey validates the shape of a raw key and returns its prefix and secret
func splitKey(raw string) (prefix, secret string, ok bool) {
	parts := strings.Split(raw, "_")
	if len(parts) != 3 || parts[0] != keyScheme {
		return "", "", false
	}
	if len(parts[1]) != prefixLength || len(parts[2]) != secretLength {
		return "", "", false
	}
	if !isHex(parts[1]) || !isHex(parts[2]) {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
