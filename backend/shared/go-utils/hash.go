package utils

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashToken is used for values that are only ever compared, never shown
// again (OTP codes).
func HashToken(raw string) string {
	hasher := sha256.New()
	hasher.Write([]byte(raw))
	return base64.URLEncoding.EncodeToString(hasher.Sum(nil))
}
