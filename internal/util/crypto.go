package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

const tokenBytes = 32

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// LicenseKeyPrefix identifies bearer credentials issued for the metered proxy.
const LicenseKeyPrefix = "ah_lic_"

const licenseKeyBytes = 24

// GenerateLicenseKey returns an opaque license key of the form
// ah_lic_<url-safe token>.
func GenerateLicenseKey() (string, error) {
	bytes := make([]byte, licenseKeyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return LicenseKeyPrefix + base64.RawURLEncoding.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MaskKey shortens a credential for display, keeping enough of the prefix to
// recognize it.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:12] + "****" + key[len(key)-4:]
}
