package utils

import "strings"

// MaskToken replaces every byte of a credential with an asterisk so the
// caller can still tell whether a token is configured and roughly how long it is.
func MaskToken(token string) string {
	return strings.Repeat("*", len(token))
}
