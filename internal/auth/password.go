// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is used for newly hashed passwords.
const bcryptCost = 12

// HashPassword returns a bcrypt digest of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LegacyDigest returns the lowercase hex SHA-256 digest of password.
func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword reports whether supplied matches the stored digest.
//
// bcrypt digests are checked with bcrypt. Any other digest is treated as a
// legacy hex SHA-256 digest: the supplied credential matches when it is the
// plaintext, or when it is already the hex digest. Hex is compared case
// insensitively in constant time.
func VerifyPassword(digest, supplied string) bool {
	if digest == "" || supplied == "" {
		return false
	}
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(supplied)) == nil
	}

	stored := []byte(strings.ToLower(digest))
	plain := subtle.ConstantTimeCompare(stored, []byte(LegacyDigest(supplied)))
	predigested := subtle.ConstantTimeCompare(stored, []byte(strings.ToLower(supplied)))
	return plain|predigested == 1
}
