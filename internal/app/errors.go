package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error the HTTP layer renders as {code, error, details}
// with Status. Err keeps the underlying cause reachable through errors.Is.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// invalid reports a rejected request body or document as VALIDATION_ERROR.
func invalid(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// invalidDocument wraps a document check failure, keeping it as the cause.
func invalidDocument(err error) *DomainError {
	e := invalid(err.Error())
	e.Err = err
	return e
}

// notFound names the missing resource kind and the key it was looked up by.
func notFound(kind, key string, value any) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", kind+" not found", map[string]any{key: value})
}
