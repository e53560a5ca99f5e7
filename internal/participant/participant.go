// Package participant validates participant identity.
package participant

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/verte-zerg/cuetask/internal/model"
)

// Sexes lists the accepted sex codes.
var Sexes = []string{"M", "K"}

// DefaultAge pre-fills the age field.
const DefaultAge = "20"

// ErrDialogCancelled reports that the participant dialog was dismissed.
var ErrDialogCancelled = errors.New("info dialog terminated")

// Normalize trims the fields and upper-cases the sex code.
func Normalize(p model.Participant) model.Participant {
	return model.Participant{
		Identifier: strings.TrimSpace(p.Identifier),
		Sex:        strings.ToUpper(strings.TrimSpace(p.Sex)),
		Age:        strings.TrimSpace(p.Age),
	}
}

// Validate checks that the composed ID can name result and log files.
func Validate(p model.Participant) error {
	if p.Identifier == "" {
		return fmt.Errorf("identifier must not be empty")
	}
	if !validSex(p.Sex) {
		return fmt.Errorf("sex must be one of %s", strings.Join(Sexes, ", "))
	}
	if p.Age == "" {
		return fmt.Errorf("age must not be empty")
	}
	for _, field := range []string{p.Identifier, p.Age} {
		if !fileSafe(field) {
			return fmt.Errorf("%q may only contain letters, digits, '-' and '_'", field)
		}
	}
	return nil
}

func validSex(sex string) bool {
	for _, s := range Sexes {
		if s == sex {
			return true
		}
	}
	return false
}

func fileSafe(value string) bool {
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}
