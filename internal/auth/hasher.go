/*-------------------------------------------------------------------------
 *
 * hasher.go
 *    Cryptographic hashing utilities for DocFlow authentication
 *
 * Provides bcrypt-based hashing functions for API key and password
 * storage and verification.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/auth/hasher.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is set to 14 (16,384 rounds) for improved security against modern attacks.
// Cost 12 (4,096 rounds) was previously used but is no longer sufficient for production.
const bcryptCost = 14

/* HashSecret hashes an API key or password using bcrypt */
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

/* VerifySecret verifies an API key or password against its hash */
func VerifySecret(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

/* GetKeyPrefix returns the first 8 characters of a key for identification */
func GetKeyPrefix(key string) string {
	if len(key) < 8 {
		return key
	}
	return key[:8]
}
