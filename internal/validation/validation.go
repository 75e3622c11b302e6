// Package validation checks operation inputs before any instruction is built.
// Names that become address seeds are bound by the 32 byte seed limit.
package validation

import (
	"net/url"
	"strings"

	"github.com/mr-tron/base58"
)

// MaxSeedLen is the longest string usable as an address seed.
const MaxSeedLen = 32

// isAlpha returns true if the byte is an ASCII letter.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// isAlphaNum returns true if the byte is an ASCII letter or digit.
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isNum(b)
}

// validateSeedName validates names that are used as address seeds: letters,
// numbers, hyphens, underscores or dots, starting with a letter or number.
func validateSeedName(value, entityType string) error {
	if value == "" {
		return fieldError(CodeRequired, "%s must not be empty", entityType)
	}
	if len(value) > MaxSeedLen {
		return fieldError(CodeTooLong, "%s must be at most %d bytes", entityType, MaxSeedLen)
	}
	if !isAlphaNum(value[0]) {
		return fieldError(CodeInvalidChars, "%s must start with a letter or number", entityType)
	}
	for _, b := range []byte(value) {
		if !isAlphaNum(b) && b != '-' && b != '_' && b != '.' {
			return fieldError(CodeInvalidChars, "%s can only contain letters, numbers, hyphens, underscores or dots", entityType)
		}
	}
	return nil
}

// ValidateIdentifier validates a work group identifier such as "abc-def-ghi".
func ValidateIdentifier(identifier string) error {
	if len(identifier) < 3 {
		return fieldError(CodeTooShort, "identifier must be at least 3 characters")
	}
	return validateSeedName(identifier, "identifier")
}

// ValidateGroupName validates the display name of a work group. It is not a
// seed, but must be longer than two characters.
func ValidateGroupName(name string) error {
	if len(strings.TrimSpace(name)) <= 2 {
		return fieldError(CodeTooShort, "group name must be longer than 2 characters")
	}
	if len(name) > 64 {
		return fieldError(CodeTooLong, "group name must be at most 64 bytes")
	}
	return nil
}

// ValidateSpecName validates a spec name.
func ValidateSpecName(name string) error {
	return validateSeedName(name, "spec name")
}

// ValidateDeploymentName validates a deployment name.
func ValidateDeploymentName(name string) error {
	return validateSeedName(name, "deployment name")
}

// ValidatePublicKey validates a base58 encoded 32 byte address.
func ValidatePublicKey(key string) error {
	if key == "" {
		return fieldError(CodeRequired, "address must not be empty")
	}
	raw, err := base58.Decode(key)
	if err != nil {
		return fieldError(CodeInvalidAddress, "address must be base58 encoded")
	}
	if len(raw) != 32 {
		return fieldError(CodeInvalidAddress, "address must decode to 32 bytes, got %d", len(raw))
	}
	return nil
}

// ValidateReplicas validates a deployment replica count, which is stored as a
// single byte on chain.
func ValidateReplicas(replicas int) error {
	if replicas < 1 || replicas > 255 {
		return fieldError(CodeOutOfRange, "replicas must be between 1 and 255")
	}
	return nil
}

// ValidateURL validates an absolute http or https URL.
func ValidateURL(raw string) error {
	if raw == "" {
		return fieldError(CodeRequired, "URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fieldError(CodeInvalidURL, "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fieldError(CodeInvalidURL, "URL scheme must be http or https")
	}
	if u.Host == "" {
		return fieldError(CodeInvalidURL, "URL must include a host")
	}
	return nil
}

// ValidateHostName validates a device host name as the device agent accepts
// it for proxy lookups.
func ValidateHostName(name string) error {
	if name == "" {
		return fieldError(CodeRequired, "host name must not be empty")
	}
	if !isAlphaNum(name[0]) {
		return fieldError(CodeInvalidChars, "host name must start with a letter or number")
	}
	for _, b := range []byte(name) {
		if !isAlphaNum(b) && b != '-' && b != '.' {
			return fieldError(CodeInvalidChars, "host names can only contain letters, numbers, hyphens or dots")
		}
	}
	return nil
}

// MaxKeyNameLen is the longest accepted API key name.
const MaxKeyNameLen = 64

// ValidateKeyName validates the name given to an API key.
func ValidateKeyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fieldError(CodeRequired, "name is required")
	}
	if len(name) > MaxKeyNameLen {
		return fieldError(CodeTooLong, "name must be at most %d bytes", MaxKeyNameLen)
	}
	return nil
}
