package utils

import "strings"

// PhoneDigits strips everything but ASCII digits from a phone number.
func PhoneDigits(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKey returns the last ten digits used to match phones regardless of
// country prefix formatting. ok is false when fewer than ten digits are present.
func PhoneKey(phone string) (key string, ok bool) {
	digits := PhoneDigits(phone)
	if len(digits) < 10 {
		return "", false
	}
	return digits[len(digits)-10:], true
}
