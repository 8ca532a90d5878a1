// Package validation provides input validation middleware for the ScamShield API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MaxPhoneLength is the maximum length for a raw phone number field
const MaxPhoneLength = 32

// phoneRegex accepts raw dialer input: digits with optional leading +
// and common formatting characters. Normalization happens later; this
// only rejects input that cannot possibly be a phone number.
var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ().\-]{1,30}$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidPhone checks if a string looks like a dialable phone number
func IsValidPhone(number string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(number))
}

// IsValidRiskLevel checks if a string is a known risk level
func IsValidRiskLevel(s string) bool {
	switch strings.ToLower(s) {
	case "low", "medium", "high":
		return true
	}
	return false
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidPhone checks if a field is a plausible phone number
func ValidPhone(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidPhone(value) {
			return &ValidationError{Field: field, Message: "must be a phone number (digits with optional + prefix)"}
		}
		return nil
	}
}

// ValidRiskLevel checks if a field is a known risk level
func ValidRiskLevel(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidRiskLevel(value) {
			return &ValidationError{Field: field, Message: "must be one of low, medium, high"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// PhoneParamMiddleware validates the :number URL parameter on routes that use it.
// Apply to route groups that include :number params to reject junk early.
func PhoneParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		number := c.Param("number")
		if number != "" && !IsValidPhone(number) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_number",
				"message": "number must be a phone number (digits with optional + prefix)",
			})
			return
		}
		c.Next()
	}
}

// ValidConfidence checks if a value is a confidence score in [0, 1]
func ValidConfidence(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < 0 || value > 1 {
			return &ValidationError{Field: field, Message: "must be between 0 and 1"}
		}
		return nil
	}
}
