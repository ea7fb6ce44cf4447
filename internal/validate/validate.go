// Package validate holds the deterministic document validators used both as
// extraction gatekeepers and as registry-lookup gatekeepers: CNPJ and CPF
// (mod-11 double check digit) and CEP (8 digits).
package validate

import (
	"regexp"
	"strings"
)

var (
	nonDigits = regexp.MustCompile(`\D+`)
	cnpjRe    = regexp.MustCompile(`\b\d{2}[.\s-]?\d{3}[.\s-]?\d{3}[/.\s-]?\d{4}[\s-]?\d{2}\b`)
	cpfRe     = regexp.MustCompile(`\b\d{3}[.\s-]?\d{3}[.\s-]?\d{3}[\s-]?\d{2}\b`)
	cepRe     = regexp.MustCompile(`\b\d{5}[-\s]?\d{3}\b|\b\d{8}\b`)
)

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfWeights1  = []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	cpfWeights2  = []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Digits strips everything but decimal digits from s.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// checkDigit computes a mod-11 check digit over digits using the given
// weight vector. A remainder below 2 yields 0, otherwise 11-remainder.
func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	mod := sum % 11
	if mod < 2 {
		return 0
	}
	return 11 - mod
}

// CNPJ reports whether raw contains a checksum-valid 14-digit CNPJ.
// All-identical digit sequences are rejected regardless of checksum.
func CNPJ(raw string) bool {
	c := Digits(raw)
	if len(c) != 14 || allSame(c) {
		return false
	}
	d1 := checkDigit(c[:12], cnpjWeights1)
	d2 := checkDigit(c[:13], cnpjWeights2)
	return int(c[12]-'0') == d1 && int(c[13]-'0') == d2
}

// CPF reports whether raw contains a checksum-valid 11-digit CPF.
func CPF(raw string) bool {
	c := Digits(raw)
	if len(c) != 11 || allSame(c) {
		return false
	}
	d1 := checkDigit(c[:9], cpfWeights1)
	d2 := checkDigit(c[:10], cpfWeights2)
	return int(c[9]-'0') == d1 && int(c[10]-'0') == d2
}

// CEP reports whether raw normalizes to exactly 8 digits.
func CEP(raw string) bool {
	return len(Digits(raw)) == 8
}

// FirstCNPJ returns the first checksum-valid CNPJ in text as 14 digits,
// or "" when none is found.
func FirstCNPJ(text string) string {
	for _, m := range cnpjRe.FindAllString(text, -1) {
		if d := Digits(m); CNPJ(d) {
			return d
		}
	}
	return ""
}

// FirstCPF returns the first checksum-valid CPF in text as 11 digits.
func FirstCPF(text string) string {
	for _, m := range cpfRe.FindAllString(text, -1) {
		if d := Digits(m); CPF(d) {
			return d
		}
	}
	return ""
}

// FirstCEP returns the first 8-digit CEP in text, normalized.
func FirstCEP(text string) string {
	for _, m := range cepRe.FindAllString(text, -1) {
		if d := Digits(m); len(d) == 8 {
			return d
		}
	}
	return ""
}

// FormatCEP renders an 8-digit CEP in the conventional 12345-678 form.
func FormatCEP(cep8 string) string {
	if len(cep8) != 8 {
		return cep8
	}
	return cep8[:5] + "-" + cep8[5:]
}

// SanitizeKey maps a conversation identifier to a storage-safe key.
func SanitizeKey(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
