package domain

import "strings"

const passwordSymbols = "$@#&!"

// PasswordStrength scores a password from 0 to 5, one point each for a lowercase
// letter, an uppercase letter, a digit, a symbol from "$@#&!" and length >= 8.
func PasswordStrength(s string) int {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	score := 0
	for _, ok := range []bool{
		lower,
		upper,
		digit,
		strings.ContainsAny(s, passwordSymbols),
		jsLength(s) >= PasswordMinLength,
	} {
		if ok {
			score++
		}
	}
	return score
}

// StrengthLabel maps a score to its display label. Zero has no label.
func StrengthLabel(score int) string {
	switch {
	case score <= 0:
		return ""
	case score == 1:
		return "Weak"
	case score == 2:
		return "Fair"
	case score == 3:
		return "Good"
	default:
		return "Strong"
	}
}
