package utils

import (
	"encoding/base64"
	"strings"
)

const maxSignatureBytes = 2 << 20

var signaturePrefixes = []string{
	"data:image/jpeg;base64,",
	"data:image/jpg;base64,",
	"data:image/png;base64,",
}

// ValidateSignatureImage accepts a JPEG or PNG signature either as a data URL
// or as bare base64. The image header is checked, not the full decode.
func ValidateSignatureImage(sig string) error {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return NewValidationError("signature is required")
	}

	payload := sig
	if strings.HasPrefix(sig, "data:") {
		payload = ""
		for _, p := range signaturePrefixes {
			if strings.HasPrefix(sig, p) {
				payload = sig[len(p):]
				break
			}
		}
		if payload == "" {
			return NewValidationError("signature must be a JPEG or PNG image")
		}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return NewValidationError("signature is not valid base64")
	}
	if len(raw) == 0 || len(raw) > maxSignatureBytes {
		return NewValidationError("signature image size is invalid")
	}
	isJPEG := len(raw) >= 3 && raw[0] == 0xFF && raw[1] == 0xD8 && raw[2] == 0xFF
	isPNG := len(raw) >= 8 && string(raw[:8]) == "\x89PNG\r\n\x1a\n"
	if !isJPEG && !isPNG {
		return NewValidationError("signature must be a JPEG or PNG image")
	}
	return nil
}
