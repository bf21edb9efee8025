package dom

import (
	"fmt"
	"strings"

	"github.com/wippyai/hello-element/errors"
)

// Names reserved by SVG and MathML that look like custom element names.
var reservedNames = map[string]bool{
	"annotation-xml":   true,
	"color-profile":    true,
	"font-face":        true,
	"font-face-src":    true,
	"font-face-uri":    true,
	"font-face-format": true,
	"font-face-name":   true,
	"missing-glyph":    true,
}

// ValidateElementName reports whether tag can be passed to CreateElement.
func ValidateElementName(tag string) error {
	if tag == "" {
		return invalidName(tag, "empty name")
	}
	if !isASCIIAlpha(tag[0]) {
		return invalidName(tag, "must start with an ASCII letter")
	}
	if i := strings.IndexAny(tag, " \t\n\f\r/<>=\"'\x00"); i >= 0 {
		return invalidName(tag, fmt.Sprintf("invalid character %q", tag[i]))
	}
	return nil
}

// ValidateCustomElementName reports whether name is a valid autonomous custom
// element name: a lowercase ASCII letter first, at least one hyphen, no
// uppercase letters, and not one of the reserved names.
func ValidateCustomElementName(name string) error {
	if err := ValidateElementName(name); err != nil {
		return err
	}
	if name[0] < 'a' || name[0] > 'z' {
		return invalidName(name, "must start with a lowercase ASCII letter")
	}
	if !strings.Contains(name, "-") {
		return invalidName(name, "must contain a hyphen")
	}
	if strings.ToLower(name) != name {
		return invalidName(name, "must not contain uppercase ASCII letters")
	}
	if reservedNames[name] {
		return invalidName(name, "reserved name")
	}
	return nil
}

func invalidName(name, detail string) error {
	return errors.New(errors.PhaseDOM, errors.KindInvalidInput).
		Value(name).
		Detail("invalid element name %q: %s", name, detail).
		Build()
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
