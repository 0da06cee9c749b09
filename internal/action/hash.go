package action

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPayload is the domain prefix for payload hashes. The version suffix
// leaves room for a future encoding change.
const DomainPayload = "reflux/payload/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash returns a content hash of the dispatched action: the constant
// and its payload in canonical form. Equal dispatches hash equally across
// processes, which lets the journal group repeated actions.
func PayloadHash(c Constant, p Payload) (string, error) {
	if p == nil {
		p = Payload{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"constant": string(c),
		"payload":  map[string]any(p),
	})
	if err != nil {
		return "", fmt.Errorf("PayloadHash: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}
