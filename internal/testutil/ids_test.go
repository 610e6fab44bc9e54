package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedLogID(t *testing.T) {
	gen := NewFixedLogID("log-123")
	assert.Equal(t, "log-123", gen.Generate())
	assert.Equal(t, "log-123", gen.Generate())

	assert.Equal(t, "test-log-default", NewFixedLogID("").Generate())
}
