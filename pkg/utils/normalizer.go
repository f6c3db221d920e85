package utils

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// TextNormalizer strips the control characters that the remote platform
// occasionally embeds in free-text fields. Tab, newline and carriage return
// are kept. The underlying transformer is stateless, so one normalizer can
// be shared between goroutines.
type TextNormalizer struct {
	transformer transform.Transformer
}

// NewTextNormalizer creates a new TextNormalizer instance.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{
		transformer: runes.Remove(runes.Predicate(IsBrokenControl)),
	}
}

// Normalize removes \x00-\x08, \x0B-\x0C and \x0E-\x1F from s.
func (n *TextNormalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	result, _, err := transform.String(n.transformer, s)
	if err != nil {
		return s
	}

	return result
}

// IsBrokenControl reports whether r is one of the control characters that
// downstream consumers cannot handle.
func IsBrokenControl(r rune) bool {
	switch {
	case r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	default:
		return false
	}
}
