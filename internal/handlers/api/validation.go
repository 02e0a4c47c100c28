package api

import (
	"errors"
	"net/mail"
	"regexp"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func validateUsername(username string) error {
	if username == "" {
		return errors.New("Username is required.")
	}
	if len(username) < 4 {
		return errors.New("Username must be at least 4 characters.")
	}
	if len(username) > 32 {
		return errors.New("Username must be less than 32 characters.")
	}
	if first := username[0]; !(('A' <= first && first <= 'Z') || ('a' <= first && first <= 'z')) {
		return errors.New("Username must start with a letter.")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Username can only contain letters, numbers, and underscores.")
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("Invalid email address.")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters.")
	}
	if len(password) > 72 {
		return errors.New("Password must be at most 72 characters.")
	}
	return nil
}
