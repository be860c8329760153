package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainStep separates step IDs from any other hash computed over the same
// canonical bytes. The version suffix allows a future algorithm change.
const DomainStep = "fluentchain/step/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StepID computes the content-addressed ID of a chain step.
// The same session, seq, kind and key always produce the same ID.
func StepID(session string, seq int64, kind, key string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"session": session,
		"seq":     seq,
		"kind":    kind,
		"key":     key,
	})
	if err != nil {
		return "", fmt.Errorf("StepID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStep, canonical), nil
}
