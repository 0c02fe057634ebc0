// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package logging

import "strings"

// sensitiveKeys are field names whose values never reach a log line intact.
var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"api_key":       true,
	"authorization": true,
	"cookie":        true,
	"cpf":           true,
	"document":      true,
}

// SanitizeToken keeps the first and last four characters of a credential.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail masks the local part: "ana.silva@example.com" becomes
// "an***@example.com".
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

// SanitizeValue masks value when key names a credential or personal
// document, or when value looks like an email address.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}
