package signup

import (
	"fmt"
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidHandle reports whether h has the shape of a Roblox username.
func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

type Field string

const (
	FieldHandle     Field = "robloxUsername"
	FieldTournament Field = "tournament"
	FieldAge        Field = "ageConfirm"
	FieldRules      Field = "rulesAccept"
)

type ErrorKind string

const (
	KindFormat   ErrorKind = "format"
	KindNotFound ErrorKind = "not-found"
	KindClosed   ErrorKind = "closed"
)

// FieldError is an inline, user-correctable problem with one form field.
// Key is the i18n message key.
type FieldError struct {
	Field Field
	Kind  ErrorKind
	Key   string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Key)
}

type Form struct {
	Handle        string `json:"robloxUsername"`
	Tournament    string `json:"tournament"`
	AgeConfirmed  bool   `json:"ageConfirm"`
	RulesAccepted bool   `json:"rulesAccept"`
}

// Normalized trims the free-text fields.
func (f Form) Normalized() Form {
	f.Handle = strings.TrimSpace(f.Handle)
	f.Tournament = strings.TrimSpace(strings.ToLower(f.Tournament))
	return f
}

// Validate runs every local check and returns all failures, in field order.
func Validate(f Form) []FieldError {
	var errs []FieldError
	if !ValidHandle(f.Handle) {
		errs = append(errs, FieldError{Field: FieldHandle, Kind: KindFormat, Key: "signup.errorInvalidUsername"})
	}
	if f.Tournament == "" {
		errs = append(errs, FieldError{Field: FieldTournament, Kind: KindFormat, Key: "signup.errorSelectTournament"})
	}
	if !f.AgeConfirmed {
		errs = append(errs, FieldError{Field: FieldAge, Kind: KindFormat, Key: "signup.errorAgeConfirm"})
	}
	if !f.RulesAccepted {
		errs = append(errs, FieldError{Field: FieldRules, Kind: KindFormat, Key: "signup.errorRulesConfirm"})
	}
	return errs
}
