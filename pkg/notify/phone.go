package notify

import "strings"

// NormalizePhone canonicalizes a destination number for the SMS gateway:
// every non-digit is stripped and the country calling code is prefixed
// unless the number already carries it. "076 123-456" with "+232" becomes
// "+232076123456".
func NormalizePhone(phone, countryCallingCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}

	code := strings.TrimPrefix(countryCallingCode, "+")
	number := digits.String()
	if strings.HasPrefix(number, code) {
		return "+" + number
	}
	return "+" + code + number
}
