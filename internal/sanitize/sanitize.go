// Package sanitize provides shared identifier sanitization for tenant IDs
// and vector store collection names.
//
// Collection names in the embedded vector store must match: ^[a-z0-9_]{1,64}$
// This package ensures all identifiers conform to that requirement.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the maximum length for collection name components.
	MaxIdentifierLength = 64

	// HashSuffixLength is the length of the hash suffix added to truncated
	// identifiers. Format: _<8-char-hash> = 9 characters total.
	HashSuffixLength = 9

	// DefaultIdentifier is used when sanitization produces an empty result.
	DefaultIdentifier = "default"
)

// Identifier sanitizes a string for use in collection names.
//
// Rules applied:
//   - Converts to lowercase
//   - Replaces invalid characters with underscores
//   - Collapses multiple underscores
//   - Trims leading/trailing underscores
//   - Truncates to MaxIdentifierLength with hash suffix if too long
//   - Returns DefaultIdentifier if result would be empty
//
// Examples:
//
//	"acme.example.com" -> "acme_example_com"
//	"Tenant 42!"       -> "tenant_42"
//	"" or "!!!"        -> "default"
func Identifier(s string) string {
	if s == "" {
		return DefaultIdentifier
	}

	s = strings.ToLower(s)

	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}

	sanitized := result.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return DefaultIdentifier
	}

	if len(sanitized) > MaxIdentifierLength {
		sanitized = truncateWithHash(sanitized)
	}

	return sanitized
}

// truncateWithHash truncates a string to fit within MaxIdentifierLength,
// appending a hash suffix to preserve uniqueness.
//
// Format: <truncated>_<8-char-hash>
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	hashSuffix := "_" + hex.EncodeToString(hash[:])[:8]

	maxBase := MaxIdentifierLength - HashSuffixLength
	truncated := s[:maxBase]
	truncated = strings.TrimRight(truncated, "_")

	return truncated + hashSuffix
}

// TenantCollection builds a collection name for a tenant partition.
//
// Format: {prefix}_{sanitized_tenant}
// Example: TenantCollection("evidence", "acme.example.com")
//
//	-> "evidence_acme_example_com"
//
// The result is guaranteed to be valid for vector store collection names.
// Distinct tenant IDs that sanitize to the same identifier are disambiguated
// by the hash suffix applied during truncation; callers should nevertheless
// issue tenant IDs that are unique after sanitization.
func TenantCollection(prefix, tenantID string) string {
	name := Identifier(prefix) + "_" + Identifier(tenantID)
	if len(name) > MaxIdentifierLength {
		name = truncateWithHash(name)
	}
	return name
}
