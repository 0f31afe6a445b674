package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// verifySignature verifies an HMAC-SHA256 signature against the request body.
//
// This function uses constant-time comparison (crypto/subtle) to prevent
// timing attacks. Notion sends signatures as "sha256=<hex>"; plain hex is
// accepted too.
//
// Returns nil if signature is valid, error otherwise.
// All errors are generic to prevent information leakage.
func verifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook verification failed")
	}

	if signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	// Compute HMAC-SHA256 of request body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	actualMAC, err := parseSignature(signature)
	if err != nil {
		// Generic error - don't leak format details
		return fmt.Errorf("webhook verification failed")
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// parseSignature extracts and decodes the HMAC signature from the header
// value, with or without the "sha256=" prefix.
func parseSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha256=") {
		hexSig := strings.TrimPrefix(signature, "sha256=")
		return hex.DecodeString(hexSig)
	}

	return hex.DecodeString(signature)
}

// computeExpectedSignature computes the HMAC-SHA256 signature for a body.
// Used for testing and validation. Returns hex-encoded signature.
func computeExpectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// formatSignatureHeader renders a hex signature as Notion sends it.
func formatSignatureHeader(hexSig string) string {
	return "sha256=" + hexSig
}
