package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("qr code not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrIDExhausted  = errors.New("could not allocate a free short id")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
