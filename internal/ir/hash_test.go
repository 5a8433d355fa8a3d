package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptorIDDeterminism(t *testing.T) {
	id1 := DescriptorID("increment", "counter", false)
	id2 := DescriptorID("increment", "counter", false)

	assert.Equal(t, id1, id2, "DescriptorID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestDescriptorIDChangesWithInput(t *testing.T) {
	base := DescriptorID("increment", "counter", false)

	assert.NotEqual(t, base, DescriptorID("decrement", "counter", false), "different name")
	assert.NotEqual(t, base, DescriptorID("increment", "totals", false), "different store key")
	assert.NotEqual(t, base, DescriptorID("increment", "counter", true), "different mode")
}

func TestTraceIDDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)

	assert.Equal(t, TraceID(data), TraceID(data))
	assert.NotEqual(t, TraceID(data), hashWithDomain(DomainDescriptor, data))
}
