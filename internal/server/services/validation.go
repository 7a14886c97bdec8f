package services

import (
	"fmt"
	"net/mail"
	"regexp"

	"github.com/avezhnov/ctfdeck/internal/common"
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]{3,150}$`)
	nameRe     = regexp.MustCompile(`^[a-zA-Z\s.]+$`)
)

const (
	minPasswordLength = 8
	// bcrypt rejects anything longer than 72 bytes.
	maxPasswordLength = 72

	// column widths in the users table
	maxFirstNameLength = 60
	maxLastNameLength  = 30
)

func validateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-150 characters, letters, digits and @/./+/-/_ only", common.ErrorValidation)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d characters", common.ErrorValidation, maxPasswordLength)
	}
	return nil
}

// Names are optional; when present they must look like names and fit the
// column.
func validateName(field, name string, maxLen int) error {
	if name == "" {
		return nil
	}
	if len(name) < 2 || len(name) > maxLen || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %s must be 2-%d characters, letters, spaces and dots only", common.ErrorValidation, field, maxLen)
	}
	return nil
}
