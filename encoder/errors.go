package encoder

import (
	"fmt"

	"github.com/ngc6302h/neomips/parser"
)

// EncodingError provides context for encoding failures: the token's source
// line and the underlying error, when one exists.
type EncodingError struct {
	Token   *parser.Token
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	location := ""
	if e.Token != nil && e.Token.Line > 0 {
		location = fmt.Sprintf("line %d: ", e.Token.Line)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s%s: %v", location, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s%s", location, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EncodingError) Unwrap() error {
	return e.Wrapped
}

// NewEncodingError creates a new EncodingError with token context.
func NewEncodingError(tok *parser.Token, message string) *EncodingError {
	return &EncodingError{Token: tok, Message: message}
}

// WrapEncodingError wraps an existing error with token context. Errors that
// already carry context pass through unchanged; nil stays nil.
func WrapEncodingError(tok *parser.Token, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*EncodingError); ok {
		return err
	}
	if _, ok := err.(*parser.Error); ok {
		return err
	}
	return &EncodingError{Token: tok, Message: "failed to encode instruction", Wrapped: err}
}
