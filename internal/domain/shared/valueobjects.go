// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a registered student.
type UserID string

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user ID cannot be empty")
	}
	return uid, nil
}

// UniversityID identifies a university in the candidate catalog.
type UniversityID string

// String returns the string representation.
func (u UniversityID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UniversityID) IsEmpty() bool {
	return u == ""
}

// NewUniversityID creates a new UniversityID with validation.
func NewUniversityID(id string) (UniversityID, error) {
	uid := UniversityID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUniversityID", ErrInvalidID, "university ID cannot be empty")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Country Value Object
// ═══════════════════════════════════════════════════════════════════════════

// CountryCode is an ISO 3166 alpha-2 or alpha-3 country code, stored upper-case.
type CountryCode string

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2,3}$`)

// IsValid checks if the code looks like an ISO country code.
func (c CountryCode) IsValid() bool {
	return countryCodeRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CountryCode) String() string {
	return string(c)
}

// NewCountryCode normalizes and validates a country code.
func NewCountryCode(code string) (CountryCode, error) {
	cc := CountryCode(strings.ToUpper(strings.TrimSpace(code)))
	if !cc.IsValid() {
		return "", NewDomainError("shared", "NewCountryCode", ErrInvalidInput, "invalid country code")
	}
	return cc, nil
}
