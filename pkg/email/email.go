// Package email holds address helpers shared by registration and notifications.
package email

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes an address for use as a store key.
// Visit records are unique per normalized address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// DisplayName returns name when set, else a name guessed from the address
// local part ("jane.doe@x.com" -> "Jane Doe").
func DisplayName(name, address string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	first, last := DeriveNameFromEmail(address)
	if last == "" {
		return first
	}
	return first + " " + last
}

// DeriveNameFromEmail splits the local part on . _ - + and capitalizes the
// first and last segments. A single segment yields an empty last name.
func DeriveNameFromEmail(address string) (string, string) {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Visitor", ""
	}

	first := capitalize(parts[0])
	last := ""
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
