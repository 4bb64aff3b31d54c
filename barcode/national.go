package barcode

import (
	"strconv"

	"medtrack/checksum"
	"medtrack/model"
)

// ProductIdentity is the interpreted form of a scanned product code:
// issuing country, embedded national pharmaceutical number, and checksum
// state. The checksum is flagged, never enforced here; field scanners
// misread single digits often enough that the caller decides whether a bad
// check digit blocks the scan.
type ProductIdentity struct {
	// Gtin carries the product code as scanned: the 14-digit GTIN/NTIN,
	// or the PPN when the label is PPN-coded. Serial uniqueness is scoped
	// to this value, so it must never be empty for an accepted scan.
	Gtin               string `json:"gtin"`
	CountryCode        string `json:"countryCode"`
	NationalNumber     string `json:"nationalNumber"`
	NationalNumberType string `json:"nationalNumberType"`
	ChecksumValid      bool   `json:"checksumValid"`
}

// prefixRule maps a GS1 prefix range to a national numbering scheme.
// Adding a country is a table entry, not new code.
type prefixRule struct {
	lo, hi     int
	country    string
	numberType string
	extract    func(gtin string) string
}

var prefixRules = []prefixRule{
	// Germany: NTIN embeds the 8-digit PZN at digits 6-13 (1-based).
	{400, 440, "DE", model.NationalNumberDEPZN, func(g string) string {
		return g[5:13]
	}},
	// France: the CIP13 is the full 13 digits behind the packaging
	// indicator, check digit included.
	{300, 379, "FR", model.NationalNumberFRCIP13, func(g string) string {
		cip := g[1:14]
		if !checksum.ValidateCIP13(cip) {
			return ""
		}
		return cip
	}},
	// Belgium/Luxembourg: 7-digit CNK with its own mod-97 check.
	{540, 549, "BE", model.NationalNumberBECNK, func(g string) string {
		cnk := g[4:11]
		if !checksum.ValidateCNK(cnk) {
			return ""
		}
		return cnk
	}},
	// Austria: 7-digit Pharmazentralnummer, no standardized check digit.
	{900, 919, "AT", model.NationalNumberATPharma, func(g string) string {
		return g[6:13]
	}},
}

// ExtractIdentity classifies a 14-digit GTIN/NTIN by its GS1 prefix (the
// three digits after the packaging indicator) and extracts the embedded
// national number. Unknown prefixes are not an error: the identity
// downgrades to GTIN_ONLY and the scan proceeds.
func ExtractIdentity(gtin string) ProductIdentity {
	identity := ProductIdentity{
		Gtin:               gtin,
		NationalNumberType: model.NationalNumberGtinOnly,
		ChecksumValid:      checksum.ValidateGTIN(gtin),
	}
	if len(gtin) != 14 {
		return identity
	}
	prefix, err := strconv.Atoi(gtin[1:4])
	if err != nil {
		return identity
	}
	for _, rule := range prefixRules {
		if prefix < rule.lo || prefix > rule.hi {
			continue
		}
		number := rule.extract(gtin)
		if number == "" {
			// Sub-number failed its own validation; keep the GTIN but
			// do not claim a national number.
			return identity
		}
		identity.CountryCode = rule.country
		identity.NationalNumber = number
		identity.NationalNumberType = rule.numberType
		return identity
	}
	return identity
}

// ExtractIdentityFromPPN interprets a PPN (DI 9N) product code. The PPN
// wraps a national number behind a 2-digit registration-agency prefix;
// agency 11 is the German IFA, which embeds the PZN8 directly. The PPN
// itself is kept as the product code so serials stay scoped per product.
func ExtractIdentityFromPPN(ppn string) ProductIdentity {
	identity := ProductIdentity{
		Gtin:               ppn,
		NationalNumberType: model.NationalNumberGtinOnly,
	}
	if len(ppn) == 12 && ppn[:2] == "11" {
		pzn := ppn[2:10]
		identity.CountryCode = "DE"
		identity.NationalNumber = pzn
		identity.NationalNumberType = model.NationalNumberDEPZN
		identity.ChecksumValid = checksum.ValidatePZN(pzn)
	}
	return identity
}
