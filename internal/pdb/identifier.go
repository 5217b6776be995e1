// Package pdb handles Protein Data Bank identifiers and the ATOM records
// of PDB-format structure files.
package pdb

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultURLTemplate is the RCSB download location. "{ID}" is replaced by
// the normalized identifier.
const DefaultURLTemplate = "https://files.rcsb.org/download/{ID}.pdb"

// idPlaceholder marks where the identifier goes in a URL template.
const idPlaceholder = "{ID}"

var upper = cases.Upper(language.Und)

// Identifier is a normalized (uppercase) structure identifier such as "4HHB".
type Identifier string

// InvalidIdentifierError reports an identifier that cannot name a structure.
type InvalidIdentifierError struct {
	Input  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid structure identifier %q: %s", e.Input, e.Reason)
}

// ParseIdentifier trims and uppercases raw. Empty input and characters
// other than ASCII letters and digits are rejected.
func ParseIdentifier(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &InvalidIdentifierError{Input: raw, Reason: "identifier is empty"}
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", &InvalidIdentifierError{Input: raw, Reason: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return Identifier(upper.String(s)), nil
}

func (id Identifier) String() string {
	return string(id)
}

// SourceURL substitutes id into template. An empty template means
// DefaultURLTemplate.
func SourceURL(template string, id Identifier) (string, error) {
	if template == "" {
		template = DefaultURLTemplate
	}
	if !strings.Contains(template, idPlaceholder) {
		return "", fmt.Errorf("url template %q has no %s placeholder", template, idPlaceholder)
	}
	return strings.ReplaceAll(template, idPlaceholder, string(id)), nil
}
