package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value of the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))

	data := []byte("graph header")
	sum := CRC32C(data)
	assert.True(t, VerifyCRC32C(data, sum))
	assert.False(t, VerifyCRC32C(data[1:], sum))
}
