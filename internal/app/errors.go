package app

import "fmt"

// DomainError carries an HTTP-mappable error across the service boundary.
// Codes in use: NOT_FOUND, FORBIDDEN, UNAUTHORIZED, VALIDATION_ERROR,
// EMAIL_NOT_CONFIGURED, EMAIL_SEND_FAILED, EXPORT_UNAVAILABLE, SERVER_ERROR.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
