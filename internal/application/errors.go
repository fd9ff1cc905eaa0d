package application

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUnderAge       = errors.New("under age")
	ErrUserNotFound   = errors.New("user not found")
)

// ruleError carries a message meant for API clients while still matching
// one of the sentinels above under errors.Is.
type ruleError struct {
	kind error
	msg  string
}

func (e *ruleError) Error() string { return e.msg }
func (e *ruleError) Unwrap() error { return e.kind }

func duplicateEmail(email string, other bool) error {
	msg := fmt.Sprintf("email '%s' is already registered", email)
	if other {
		msg = fmt.Sprintf("email '%s' is already registered to another user", email)
	}
	return &ruleError{kind: ErrDuplicateEmail, msg: msg}
}

func underAge() error {
	return &ruleError{kind: ErrUnderAge, msg: "user must be at least 18 years old"}
}

func userNotFound(id int64) error {
	return &ruleError{kind: ErrUserNotFound, msg: fmt.Sprintf("user with id %d not found", id)}
}
