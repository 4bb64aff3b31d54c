package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGTIN(t *testing.T) {
	assert.True(t, ValidateGTIN("04150138327077"))
	assert.True(t, ValidateGTIN("03400935955838"))

	assert.False(t, ValidateGTIN("04150138327076"), "wrong check digit")
	assert.False(t, ValidateGTIN("0415013832707"), "too short")
	assert.False(t, ValidateGTIN("041501383270777"), "too long")
	assert.False(t, ValidateGTIN("0415013832707A"), "non-digit")
	assert.False(t, ValidateGTIN(""))
}

func TestValidatePZN(t *testing.T) {
	assert.True(t, ValidatePZN("12345673"))

	assert.False(t, ValidatePZN("12345674"), "wrong check digit")
	// Weighted sum remainder 10: no valid check digit exists.
	assert.False(t, ValidatePZN("10000010"))
	assert.False(t, ValidatePZN("1234567"), "too short")
	assert.False(t, ValidatePZN("1234567X"), "non-digit")
}

func TestValidateCIP13(t *testing.T) {
	assert.True(t, ValidateCIP13("3400935955838"))

	assert.False(t, ValidateCIP13("3400935955830"), "wrong check digit")
	assert.False(t, ValidateCIP13("340093595583"), "too short")
}

func TestValidateCNK(t *testing.T) {
	// 12345 % 97 = 26, check = 97 - 26 = 71.
	assert.True(t, ValidateCNK("1234571"))

	assert.False(t, ValidateCNK("1234570"), "wrong check digits")
	assert.False(t, ValidateCNK("123457"), "too short")
	assert.False(t, ValidateCNK("12345AB"), "non-digit")
}
