// Package validation turns decoded request schemas into ordered lists of
// human readable errors. Validators are pure and total: every rule runs and
// every violation is reported, so a client can fix a form in one round trip.
// Type coercion (form strings to numbers, JSON strings to arrays) happens in
// the decode helpers, never inside a validator.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Errors is an ordered list of violations. A nil or empty Errors means valid.
type Errors []string

func (e Errors) Error() string { return strings.Join(e, "; ") }

// OK reports whether no rule was violated.
func (e Errors) OK() bool { return len(e) == 0 }

func (e *Errors) check(ok bool, msg string) {
	if !ok {
		*e = append(*e, msg)
	}
}

// Mode selects full (create) or partial (update) validation.
type Mode int

const (
	// ModeCreate requires every mandatory field.
	ModeCreate Mode = iota
	// ModeUpdate validates only the fields that are present.
	ModeUpdate
)

var validate = validator.New()

// IsEmail reports whether s is a syntactically valid address.
func IsEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}

// IsObjectID reports whether s looks like a MongoDB ObjectID.
func IsObjectID(s string) bool {
	return validate.Var(s, "required,mongodb") == nil
}

// minLen trims s and checks its length in characters.
func minLen(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}
