package validation

import (
	"regexp"
	"strings"
)

// Error is a user-facing input validation failure.
type Error string

// Error implements the error interface
func (e Error) Error() string { return string(e) }

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that the email is syntactically plausible.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Error("email is required")
	}
	if len(email) > 254 {
		return Error("email is too long")
	}
	if !emailRegex.MatchString(email) {
		return Error("invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return Error("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return Error("password is too long")
	}
	return nil
}

// ValidateName checks a display name for profiles, tasks and rewards.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Error("name is required")
	}
	if len(name) > 100 {
		return Error("name is too long")
	}
	return nil
}

// ValidatePoints checks a task point value.
func ValidatePoints(points int) error {
	if points < 0 {
		return Error("points cannot be negative")
	}
	if points > 10000 {
		return Error("points value is too large")
	}
	return nil
}

// ValidateCost checks a reward cost.
func ValidateCost(cost int) error {
	if cost <= 0 {
		return Error("cost must be positive")
	}
	if cost > 10000 {
		return Error("cost is too large")
	}
	return nil
}
