package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medtrack/model"
)

func TestExtractIdentityGermany(t *testing.T) {
	id := ExtractIdentity("04150138327077")

	assert.Equal(t, "DE", id.CountryCode)
	assert.Equal(t, model.NationalNumberDEPZN, id.NationalNumberType)
	assert.Equal(t, "13832707", id.NationalNumber)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityFrance(t *testing.T) {
	id := ExtractIdentity("03400935955838")

	assert.Equal(t, "FR", id.CountryCode)
	assert.Equal(t, model.NationalNumberFRCIP13, id.NationalNumberType)
	assert.Equal(t, "3400935955838", id.NationalNumber)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityFranceBadCIPDowngrades(t *testing.T) {
	// Prefix is French but the embedded CIP13 fails its check digit.
	id := ExtractIdentity("03400935955831")

	assert.Equal(t, model.NationalNumberGtinOnly, id.NationalNumberType)
	assert.Empty(t, id.NationalNumber)
	assert.Empty(t, id.CountryCode)
}

func TestExtractIdentityBelgium(t *testing.T) {
	id := ExtractIdentity("05401234571000")

	assert.Equal(t, "BE", id.CountryCode)
	assert.Equal(t, model.NationalNumberBECNK, id.NationalNumberType)
	assert.Equal(t, "1234571", id.NationalNumber)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityBelgiumBadCNKDowngrades(t *testing.T) {
	id := ExtractIdentity("05401234570000")

	assert.Equal(t, model.NationalNumberGtinOnly, id.NationalNumberType)
	assert.Empty(t, id.NationalNumber)
}

func TestExtractIdentityAustria(t *testing.T) {
	id := ExtractIdentity("09001234567896")

	assert.Equal(t, "AT", id.CountryCode)
	assert.Equal(t, model.NationalNumberATPharma, id.NationalNumberType)
	assert.Equal(t, "3456789", id.NationalNumber)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityUnknownPrefix(t *testing.T) {
	id := ExtractIdentity("07612345678900")

	assert.Equal(t, model.NationalNumberGtinOnly, id.NationalNumberType)
	assert.Empty(t, id.NationalNumber)
	assert.Empty(t, id.CountryCode)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityBadGTINChecksumStillExtracts(t *testing.T) {
	// One misread digit outside the PZN region: the checksum flag flips
	// but the national number is still extracted.
	id := ExtractIdentity("04150138327076")

	assert.False(t, id.ChecksumValid)
	assert.Equal(t, "13832707", id.NationalNumber)
	assert.Equal(t, model.NationalNumberDEPZN, id.NationalNumberType)
}

func TestExtractIdentityFromPPN(t *testing.T) {
	id := ExtractIdentityFromPPN("111234567342")

	assert.Equal(t, "111234567342", id.Gtin, "the PPN is the product code")
	assert.Equal(t, "DE", id.CountryCode)
	assert.Equal(t, model.NationalNumberDEPZN, id.NationalNumberType)
	assert.Equal(t, "12345673", id.NationalNumber)
	assert.True(t, id.ChecksumValid)
}

func TestExtractIdentityFromPPNUnknownAgency(t *testing.T) {
	id := ExtractIdentityFromPPN("991234567842")

	assert.Equal(t, "991234567842", id.Gtin)
	assert.Equal(t, model.NationalNumberGtinOnly, id.NationalNumberType)
	assert.Empty(t, id.NationalNumber)
}
