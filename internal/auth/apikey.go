package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"spotifiuby/internal/apperr"
)

// APIKeys is the allow-list of pre-shared service keys.
//
// Entries that look like bcrypt hashes are compared with bcrypt; anything
// else is compared in constant time.
type APIKeys struct {
	entries []string
	enforce bool
}

// NewAPIKeys builds an allow-list. When enforce is false every key is accepted.
func NewAPIKeys(entries []string, enforce bool) *APIKeys {
	var cleaned []string
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return &APIKeys{entries: cleaned, enforce: enforce}
}

// Verify checks key against the allow-list.
func (k *APIKeys) Verify(key string) error {
	if k == nil || !k.enforce {
		return nil
	}
	if key == "" {
		return apperr.InvalidAPIKey()
	}
	for _, entry := range k.entries {
		if isBcryptHash(entry) {
			if bcrypt.CompareHashAndPassword([]byte(entry), []byte(key)) == nil {
				return nil
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(entry), []byte(key)) == 1 {
			return nil
		}
	}
	return apperr.InvalidAPIKey()
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
