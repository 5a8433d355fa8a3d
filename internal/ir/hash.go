package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDescriptor = "actionkit/descriptor/v1"
	DomainTrace      = "actionkit/trace/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DescriptorID computes the content-addressed ID of a compiled action.
// The ID covers what a registration exposes to dispatchers (name, store key,
// mode and derived dispatch types), not the handlers or the initial state.
func DescriptorID(name, storeKey string, async bool) string {
	types := []any{name}
	if async {
		lc := LifecycleOf(name)
		types = []any{lc.Wait, lc.Success, lc.Fail}
	}
	obj := map[string]any{
		"name":      name,
		"store_key": storeKey,
		"async":     async,
		"types":     types,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		// Only strings and bools are involved; canonicalization cannot fail.
		panic(fmt.Sprintf("DescriptorID: %v", err))
	}
	return hashWithDomain(DomainDescriptor, canonical)
}

// TraceID computes the content-addressed ID of a canonical trace document.
func TraceID(canonicalTrace []byte) string {
	return hashWithDomain(DomainTrace, canonicalTrace)
}
