// Package checksum implements the check-digit algorithms used by
// pharmaceutical product codes. All validators are total: malformed input
// returns false instead of an error, since misread scans are everyday input.
package checksum

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateGTIN checks the modulo-10 check digit of a 14-digit GTIN.
// Digits at even index (0-based, from the left) weigh 3, odd index 1;
// the check digit is (10 - sum mod 10) mod 10.
func ValidateGTIN(gtin string) bool {
	if len(gtin) != 14 || !allDigits(gtin) {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		d := int(gtin[i] - '0')
		if i%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	check := (10 - sum%10) % 10
	return check == int(gtin[13]-'0')
}

// ValidatePZN checks the modulo-11 check digit of an 8-digit German PZN.
// The first 7 digits weigh 2..8; a remainder of 10 means the PZN cannot
// exist, so it is invalid regardless of the trailing digit.
func ValidatePZN(pzn string) bool {
	if len(pzn) != 8 || !allDigits(pzn) {
		return false
	}
	sum := 0
	for i := 0; i < 7; i++ {
		sum += int(pzn[i]-'0') * (i + 2)
	}
	check := sum % 11
	if check == 10 {
		return false
	}
	return check == int(pzn[7]-'0')
}

// ValidateCIP13 checks the modulo-10 (Luhn-style GS1) check digit of a
// 13-digit French CIP13.
func ValidateCIP13(cip string) bool {
	if len(cip) != 13 || !allDigits(cip) {
		return false
	}
	// Same weighting as GTIN, counted from the right.
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(cip[i] - '0')
		if (13-i)%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	check := (10 - sum%10) % 10
	return check == int(cip[12]-'0')
}

// ValidateCNK checks the modulo-97 check digits of a 7-digit Belgian CNK:
// 5 code digits followed by 2 check digits.
func ValidateCNK(cnk string) bool {
	if len(cnk) != 7 || !allDigits(cnk) {
		return false
	}
	code := 0
	for i := 0; i < 5; i++ {
		code = code*10 + int(cnk[i]-'0')
	}
	check := int(cnk[5]-'0')*10 + int(cnk[6]-'0')
	return check == 97-(code%97)
}
