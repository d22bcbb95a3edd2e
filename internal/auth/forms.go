// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/incrime/incrime-tui/internal/api"
)

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// Field names used as keys in ValidationError.Fields.
const (
	FieldFullName        = "fullName"
	FieldUsername        = "username"
	FieldContact         = "contact"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldForm            = "form"
)

// ValidationError maps form fields to human-readable problems.
type ValidationError struct {
	Fields map[string]string
}

// Error joins the field messages in a stable order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for one field, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// =============================================================================
// PASSWORD STRENGTH
// =============================================================================

// Strength rates a password.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthNormal
	StrengthStrong
)

// String returns the label shown under the password field.
func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "Strong password"
	case StrengthNormal:
		return "Normal password"
	default:
		return "Weak password"
	}
}

const passwordSymbols = "!@#$%^&*"

// PasswordStrength scores one point each for a length of 8 to 16, an
// uppercase letter, a digit, and one of !@#$%^&*. Two or fewer points is
// weak, three is normal, four is strong.
func PasswordStrength(password string) Strength {
	score := 0
	if n := utf8.RuneCountInString(password); n >= 8 && n <= 16 {
		score++
	}
	if strings.IndexFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
		score++
	}
	if strings.IndexFunc(password, unicode.IsDigit) >= 0 {
		score++
	}
	if strings.ContainsAny(password, passwordSymbols) {
		score++
	}

	switch {
	case score <= 2:
		return StrengthWeak
	case score == 3:
		return StrengthNormal
	default:
		return StrengthStrong
	}
}

// =============================================================================
// FORMS
// =============================================================================

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoginForm is the input of Context.Login.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Validate checks that both fields are present.
func (f LoginForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	if err := validate.Struct(f); err != nil {
		return &ValidationError{Fields: map[string]string{FieldForm: "Please enter username and password"}}
	}
	return nil
}

// SignupForm is the input of Context.Register.
type SignupForm struct {
	FullName        string `validate:"required"`
	Username        string `validate:"required"`
	Email           string `validate:"omitempty,email"`
	Phone           string
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

var signupMessages = map[string]struct {
	key string
	msg string
}{
	"FullName":        {FieldFullName, "Full name required"},
	"Username":        {FieldUsername, "Username required"},
	"Email":           {FieldEmail, "Invalid email"},
	"Password":        {FieldPassword, "Password required"},
	"ConfirmPassword": {FieldConfirmPassword, "Passwords do not match"},
}

// Normalize trims surrounding whitespace from the identity fields.
func (f SignupForm) Normalize() SignupForm {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	return f
}

// Validate returns a *ValidationError describing every problem at once.
func (f SignupForm) Validate() error {
	f = f.Normalize()
	fields := map[string]string{}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if m, ok := signupMessages[fe.Field()]; ok {
				fields[m.key] = m.msg
			}
		}
	}

	if f.Email == "" && f.Phone == "" {
		fields[FieldContact] = "Email or phone required"
	}
	if f.Password != "" && PasswordStrength(f.Password) != StrengthStrong {
		fields[FieldPassword] = "Please use a stronger password"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Registration converts the form into the API request body.
func (f SignupForm) Registration() api.Registration {
	f = f.Normalize()
	return api.Registration{
		FullName: f.FullName,
		Username: f.Username,
		Email:    f.Email,
		Phone:    f.Phone,
		Password: f.Password,
	}
}
