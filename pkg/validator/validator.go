package validator

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	minFullNameLength = 2
	DateLayout        = "2006-01-02"
)

var (
	// Email: basic email validation
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	mobileRegex        = regexp.MustCompile(`^\d{10}$`)
	ifscRegex          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumberRegex = regexp.MustCompile(`^\d{9,18}$`)

	whitespaceRegex = regexp.MustCompile(`\s+`)
)

var genders = map[string]bool{"male": true, "female": true, "other": true}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateEmail checks if email format is valid
func (v *Validator) ValidateEmail(email string) error {
	if len(email) == 0 || len(email) > 255 {
		return errors.ErrInvalidEmail
	}

	if !emailRegex.MatchString(email) {
		return errors.ErrInvalidEmail
	}

	return nil
}

// ValidatePassword enforces length bounds only; composition rules are left to the client.
func (v *Validator) ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return errors.ErrWeakPassword
	}
	return nil
}

func (v *Validator) ValidateFullName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < minFullNameLength {
		return errors.NewAppError(errors.ErrInvalidInput, "full name must be at least 2 characters", 400)
	}
	return nil
}

func (v *Validator) ValidateMobile(mobile string) error {
	if !mobileRegex.MatchString(mobile) {
		return errors.ErrInvalidMobile
	}
	return nil
}

func (v *Validator) ValidateGender(gender string) error {
	if !genders[strings.ToLower(gender)] {
		return errors.NewAppError(errors.ErrInvalidInput, "gender must be male, female or other", 400)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func (v *Validator) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "date must be YYYY-MM-DD", 400)
	}
	return t, nil
}

func (v *Validator) ValidateIFSC(code string) error {
	if !ifscRegex.MatchString(code) {
		return errors.NewAppError(errors.ErrInvalidInput, "please enter a valid 11-character IFSC code", 400)
	}
	return nil
}

func (v *Validator) ValidateAccountNumber(number string) error {
	if !accountNumberRegex.MatchString(number) {
		return errors.NewAppError(errors.ErrInvalidInput, "account number must be between 9 and 18 digits", 400)
	}
	return nil
}

// ValidateAmount rejects zero, negative and non-finite amounts.
func (v *Validator) ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return errors.ErrInvalidAmount
	}
	return nil
}

// ValidateRequired rejects blank values, naming the field in the message.
func (v *Validator) ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewAppError(errors.ErrInvalidInput, field+" is required", 400)
	}
	return nil
}

// SanitizeString removes dangerous characters and null bytes
func (v *Validator) SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	return input
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func (v *Validator) NormalizeEmail(email string) string {
	return strings.ToLower(v.SanitizeString(email))
}

// NormalizePhrase trims, lowercases and collapses internal whitespace.
func (v *Validator) NormalizePhrase(phrase string) string {
	phrase = strings.ToLower(v.SanitizeString(phrase))
	return whitespaceRegex.ReplaceAllString(phrase, " ")
}

// ValidateText bounds free-form text such as complaint bodies.
func (v *Validator) ValidateText(field, text string, max int) error {
	if len(text) > max {
		return errors.NewAppError(errors.ErrInvalidInput, field+" is too long", 400)
	}
	return nil
}
