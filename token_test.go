package casreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWriteIDIsUnique(t *testing.T) {
	a := NewWriteID()
	b := NewWriteID()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
