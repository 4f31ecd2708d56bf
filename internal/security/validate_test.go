// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "scriptalert(1)/script", SanitizeInput("<script>alert(1)</script>"))
	assert.Equal(t, "alert(1)", SanitizeInput("javascript:alert(1)"))
	assert.Equal(t, "img x", SanitizeInput(" <img onerror=x> "))
	assert.Equal(t, "clean", SanitizeInput("cl\x1bean"))
	assert.Equal(t, "ปลาทู 2 กก.", SanitizeInput("ปลาทู 2 กก."))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidateEmail("somchai@example.com"))
	assert.False(t, ValidateEmail("somchai@example"))
	assert.False(t, ValidateEmail("som chai@example.com"))

	assert.True(t, ValidatePhone("0812345678"))
	assert.True(t, ValidatePhone("+66812345678"))
	assert.False(t, ValidatePhone("12345"))

	assert.True(t, ValidatePrice("0"))
	assert.True(t, ValidatePrice("149.50"))
	assert.False(t, ValidatePrice("-1"))
	assert.False(t, ValidatePrice("NaN"))

	assert.True(t, ValidateQuantity("3"))
	assert.False(t, ValidateQuantity("0"))
	assert.False(t, ValidateQuantity("1.5"))
}

func TestValidateForm(t *testing.T) {
	rules := map[string]FieldRule{
		"email":    RuleEmail,
		"password": RulePassword,
		"price":    RulePrice,
		"quantity": RuleQuantity,
		"phone":    RulePhone,
	}

	err := ValidateForm(map[string]string{
		"email":    "somchai@example.com",
		"password": "secret1",
		"price":    "250",
		"quantity": "10",
	}, rules)
	assert.NoError(t, err)

	err = ValidateForm(map[string]string{
		"email":    "nope",
		"password": "abc",
		"price":    "2000000",
		"quantity": "",
		"phone":    "999",
	}, rules)
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Invalid email format", fe["email"])
	assert.Equal(t, "Minimum length is 6 characters", fe["password"])
	assert.Equal(t, "Maximum value is 1e+06", fe["price"])
	assert.Equal(t, "quantity is required", fe["quantity"])
	assert.Equal(t, "Invalid phone number format", fe["phone"])
}

func TestAuthErrorMessage(t *testing.T) {
	wrong := NewAuthError(CodeWrongPassword)
	assert.Equal(t, "รหัสผ่านไม่ถูกต้อง", AuthErrorMessage(OpLogin, wrong))
	assert.Equal(t, "รหัสผ่านไม่ถูกต้อง", AuthErrorMessage(OpLogin, fmt.Errorf("sign in: %w", wrong)))
	assert.Equal(t, genericRegisterMessage, AuthErrorMessage(OpRegister, wrong))

	prefixed := &AuthError{Code: "auth/" + CodeEmailAlreadyInUse}
	assert.Equal(t, CodeEmailAlreadyInUse, AuthErrorCode(prefixed))
	assert.Equal(t, "อีเมลนี้ถูกใช้งานแล้ว กรุณาใช้อีเมลอื่น", AuthErrorMessage(OpRegister, prefixed))

	assert.Equal(t, genericLoginMessage, AuthErrorMessage(OpLogin, errors.New("boom")))
	assert.Equal(t, "", AuthErrorCode(nil))
}
