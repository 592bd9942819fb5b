package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("入力が不正です")
	ErrNotFound     = errors.New("見つかりません")
)

// ValidationError describes which field of an input was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
