// Package validator normalizes the Nepali mobile numbers guests book with
package validator

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmptyPhone    = errors.New("phone number cannot be empty")
	ErrInvalidFormat = errors.New("phone number can only contain digits")
	ErrInvalidLength = errors.New("phone number must be exactly 10 digits")
	ErrInvalidPrefix = errors.New("phone number must start with 96, 97 or 98")
)

const (
	countryCode  = "977"
	mobileDigits = 10
)

// mobilePrefixes are the operator blocks a Nepali mobile number starts with
var mobilePrefixes = map[string]bool{"96": true, "97": true, "98": true}

// separators may appear anywhere in typed input and are dropped
const separators = " -().+"

// NormalizePhone returns the ten digit national form of a mobile number.
// It accepts 9841234567, 984-123-4567 and +977 984 1234567.
func NormalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyPhone
	}

	digits := strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) {
			return -1
		}
		return r
	}, raw)

	for _, r := range digits {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return "", ErrInvalidFormat
		}
	}

	if len(digits) == len(countryCode)+mobileDigits && strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}
	if len(digits) != mobileDigits {
		return "", ErrInvalidLength
	}
	if !mobilePrefixes[digits[:2]] {
		return "", ErrInvalidPrefix
	}
	return digits, nil
}

// IsMobile reports whether raw normalizes cleanly
func IsMobile(raw string) bool {
	_, err := NormalizePhone(raw)
	return err == nil
}

// DisplayPhone renders a number as 98X-XXX-XXXX for receipts and the admin list
func DisplayPhone(raw string) (string, error) {
	n, err := NormalizePhone(raw)
	if err != nil {
		return "", err
	}
	return n[:3] + "-" + n[3:6] + "-" + n[6:], nil
}

// InternationalPhone is the E.164 form, +977 followed by the national number
func InternationalPhone(raw string) (string, error) {
	n, err := NormalizePhone(raw)
	if err != nil {
		return "", err
	}
	return "+" + countryCode + n, nil
}
