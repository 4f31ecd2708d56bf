// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"errors"
	"strings"
)

// Auth error codes reported by the provider.
const (
	CodeUserNotFound        = "user-not-found"
	CodeWrongPassword       = "wrong-password"
	CodeInvalidEmail        = "invalid-email"
	CodeTooManyRequests     = "too-many-requests"
	CodeUserDisabled        = "user-disabled"
	CodeEmailAlreadyInUse   = "email-already-in-use"
	CodeWeakPassword        = "weak-password"
	CodeOperationNotAllowed = "operation-not-allowed"
	CodeInvalidOTP          = "invalid-otp"
)

// AuthError carries a provider error code.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth/" + e.Code + ": " + e.Err.Error()
	}
	return "auth/" + e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError returns an AuthError for code.
func NewAuthError(code string) *AuthError {
	return &AuthError{Code: code}
}

// AuthErrorCode extracts the provider code from err, accepting both bare
// codes and the "auth/" prefixed form. It returns "" when err has none.
func AuthErrorCode(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return strings.TrimPrefix(ae.Code, "auth/")
	}
	return ""
}

// AuthOperation selects which message table applies.
type AuthOperation int

const (
	OpLogin AuthOperation = iota
	OpRegister
)

var loginMessages = map[string]string{
	CodeUserNotFound:    "ไม่พบผู้ใช้นี้ในระบบ",
	CodeWrongPassword:   "รหัสผ่านไม่ถูกต้อง",
	CodeInvalidEmail:    "รูปแบบอีเมลไม่ถูกต้อง",
	CodeTooManyRequests: "มีการพยายามเข้าสู่ระบบมากเกินไป กรุณารอสักครู่",
	CodeUserDisabled:    "บัญชีผู้ใช้นี้ถูกระงับการใช้งาน",
	CodeInvalidOTP:      "รหัสยืนยันตัวตนไม่ถูกต้อง",
}

var registerMessages = map[string]string{
	CodeEmailAlreadyInUse:   "อีเมลนี้ถูกใช้งานแล้ว กรุณาใช้อีเมลอื่น",
	CodeInvalidEmail:        "รูปแบบอีเมลไม่ถูกต้อง",
	CodeWeakPassword:        "รหัสผ่านอ่อนเกินไป กรุณาใช้รหัสผ่านที่แข็งแกร่งกว่า",
	CodeOperationNotAllowed: "การลงทะเบียนด้วยอีเมลและรหัสผ่านถูกปิดใช้งาน",
	CodeTooManyRequests:     "มีการพยายามลงทะเบียนมากเกินไป กรุณาลองใหม่ในภายหลัง",
}

const (
	genericLoginMessage    = "เกิดข้อผิดพลาดในการเข้าสู่ระบบ กรุณาลองใหม่อีกครั้ง"
	genericRegisterMessage = "เกิดข้อผิดพลาดในการลงทะเบียน"
)

// AuthErrorMessage maps err to the message shown to the user. Unknown
// codes and non-auth errors get the generic message for op.
func AuthErrorMessage(op AuthOperation, err error) string {
	code := AuthErrorCode(err)
	table, generic := loginMessages, genericLoginMessage
	if op == OpRegister {
		table, generic = registerMessages, genericRegisterMessage
	}
	if msg, ok := table[code]; ok {
		return msg
	}
	return generic
}
