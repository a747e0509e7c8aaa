package ir

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest command or parameter name the command
// surface accepts.
const MaxNameLength = 32

var namePattern = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

// NormalizeName canonicalises a command or parameter name: surrounding space
// trimmed, NFC composed and lower-cased. Names are compared and stored in this form.
func NormalizeName(name string) string {
	// Casers are stateful: one per call.
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(name)))
}

// IsValidName reports whether name (already normalised) is acceptable on the
// external command surface.
func IsValidName(name string) bool {
	return namePattern.MatchString(name) && NormalizeName(name) == name
}

// NormalizeDefinition returns d with its command and parameter names normalised.
func NormalizeDefinition(d Definition) Definition {
	out := d
	out.Name = NormalizeName(d.Name)
	out.Parameters = make([]Parameter, len(d.Parameters))
	for i, p := range d.Parameters {
		p.Name = NormalizeName(p.Name)
		out.Parameters[i] = p
	}
	return out
}
