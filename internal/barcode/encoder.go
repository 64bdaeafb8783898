package barcode

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Length is the fixed width of an EAN-13 barcode number.
const Length = 13

var (
	ErrEmptyProductCode = errors.New("product code is required")
	ErrEmptyColorName   = errors.New("color name is required")
	ErrInvalidBarcode   = errors.New("invalid barcode")
)

var payloadModulus = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// Generate derives the deterministic EAN-13 number for a product/color
// pair. The canonical key "{productCode}|{colorName}" is hashed with
// SHA-256, the digest is reduced modulo 10^12 to a zero-padded 12-digit
// payload, and the EAN-13 check digit is appended. Identical inputs
// always yield the identical output; uniqueness across variants is
// enforced by the store, not here.
func Generate(productCode, colorName string) (string, error) {
	if productCode == "" {
		return "", ErrEmptyProductCode
	}
	if colorName == "" {
		return "", ErrEmptyColorName
	}

	digest := sha256.Sum256([]byte(productCode + "|" + colorName))
	hashInt := new(big.Int).SetBytes(digest[:])
	payload := fmt.Sprintf("%012s", hashInt.Mod(hashInt, payloadModulus).String())

	check, err := checkDigit(payload)
	if err != nil {
		return "", err
	}

	return payload + strconv.Itoa(check), nil
}

// Validate reports whether code is a well-formed EAN-13 number: exactly
// 13 decimal digits whose final digit matches the recomputed checksum.
func Validate(code string) bool {
	if len(code) != Length || !isNumeric(code) {
		return false
	}

	check, err := checkDigit(code[:12])
	if err != nil {
		return false
	}

	return int(code[12]-'0') == check
}

// Normalize restores leading zeros dropped by numeric scanner input.
// Numeric strings of at most 13 digits are left-padded to the full
// width; anything else passes through untouched.
func Normalize(raw string) string {
	code := strings.TrimSpace(raw)
	if len(code) == 0 || len(code) > Length || !isNumeric(code) {
		return code
	}
	return strings.Repeat("0", Length-len(code)) + code
}

// checkDigit computes the EAN-13 checksum over a 12-digit payload:
// digits at odd positions weigh 1, even positions weigh 3 (1-based).
func checkDigit(payload string) (int, error) {
	if len(payload) != 12 || !isNumeric(payload) {
		return 0, fmt.Errorf("%w: check digit requires 12 digits", ErrInvalidBarcode)
	}

	sum := 0
	for i, r := range payload {
		d := int(r - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}

	return (10 - sum%10) % 10, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
