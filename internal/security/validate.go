// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern     = regexp.MustCompile(`^(\+66|0)[0-9]{8,9}$`)
	scriptProtocol   = regexp.MustCompile(`(?i)javascript:`)
	inlineHandler    = regexp.MustCompile(`(?i)on\w+=`)
	angleBrackets    = strings.NewReplacer("<", "", ">", "")
	controlCharacter = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// SanitizeInput strips markup brackets, script URLs, inline handlers and
// terminal control characters, then trims surrounding space.
func SanitizeInput(s string) string {
	s = angleBrackets.Replace(s)
	s = scriptProtocol.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	s = controlCharacter.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ValidateEmail reports whether s looks like an address.
func ValidateEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidatePhone accepts Thai numbers: +66 or 0 followed by 8-9 digits.
func ValidatePhone(s string) bool { return phonePattern.MatchString(s) }

// ValidatePrice accepts any finite number >= 0.
func ValidatePrice(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// ValidateQuantity accepts whole numbers > 0.
func ValidateQuantity(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n > 0
}

// =============================================================================
// FORM RULES
// =============================================================================

// FieldType selects a format check.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEmail
	FieldPhone
	FieldPrice
	FieldQuantity
	FieldNumber
)

// FieldRule constrains one form field. Zero values disable a check.
type FieldRule struct {
	Required  bool
	Type      FieldType
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
}

func bound(v float64) *float64 { return &v }

// Rule sets for the back-office forms.
var (
	RuleEmail       = FieldRule{Required: true, Type: FieldEmail, MaxLength: 100}
	RulePassword    = FieldRule{Required: true, MinLength: 6, MaxLength: 50}
	RuleProductName = FieldRule{Required: true, MinLength: 1, MaxLength: 100}
	RulePrice       = FieldRule{Required: true, Type: FieldPrice, Min: bound(0), Max: bound(1000000)}
	RuleQuantity    = FieldRule{Required: true, Type: FieldQuantity, Min: bound(1), Max: bound(10000)}
	RulePhone       = FieldRule{Type: FieldPhone, MaxLength: 15}
)

// FieldErrors maps field names to the first problem found.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// ValidateForm checks values against rules. Fields without a rule are
// ignored. It returns nil when everything passes.
func ValidateForm(values map[string]string, rules map[string]FieldRule) error {
	errs := FieldErrors{}
	for field, rule := range rules {
		value := strings.TrimSpace(values[field])
		if value == "" {
			if rule.Required {
				errs[field] = field + " is required"
			}
			continue
		}
		if msg := checkField(value, rule); msg != "" {
			errs[field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkField(value string, rule FieldRule) string {
	switch rule.Type {
	case FieldEmail:
		if !ValidateEmail(value) {
			return "Invalid email format"
		}
	case FieldPhone:
		if !ValidatePhone(value) {
			return "Invalid phone number format"
		}
	case FieldPrice:
		if !ValidatePrice(value) {
			return "Price must be a positive number"
		}
	case FieldQuantity:
		if !ValidateQuantity(value) {
			return "Quantity must be a positive integer"
		}
	case FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "Must be a valid number"
		}
	}

	n := utf8.RuneCountInString(value)
	if rule.MinLength > 0 && n < rule.MinLength {
		return fmt.Sprintf("Minimum length is %d characters", rule.MinLength)
	}
	if rule.MaxLength > 0 && n > rule.MaxLength {
		return fmt.Sprintf("Maximum length is %d characters", rule.MaxLength)
	}

	if rule.Min != nil || rule.Max != nil {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil && rule.Min != nil && f < *rule.Min {
			return fmt.Sprintf("Minimum value is %g", *rule.Min)
		}
		if err == nil && rule.Max != nil && f > *rule.Max {
			return fmt.Sprintf("Maximum value is %g", *rule.Max)
		}
	}
	return ""
}
