// Package errors provides examples of structured error handling in slotpool.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/slotpool/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeValidation, "initial capacity must be positive").
		WithDetail("initial_capacity", 0)

	fmt.Println(err.Error())

	// Output:
	// validation: initial capacity must be positive
}

// ExampleWrap shows how a factory failure is wrapped with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFactory, "factory failed while populating slots").
		WithDetail("slot", 3)

	if errors.IsType(err, errors.ErrorTypeFactory) {
		fmt.Println("This is a factory error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause is preserved")
	}

	// Output:
	// This is a factory error
	// Cause is preserved
}

// Example_errorChain shows how nested contexts render.
func Example_errorChain() {
	err := errors.New(errors.ErrorTypeValidation, "expansion percent out of range")
	err = errors.Wrap(err, errors.ErrorTypeConfig, "invalid pool config").
		WithDetail("file", "pool.yaml")

	fmt.Println(err)

	// Output:
	// config: invalid pool config: validation: expansion percent out of range
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	valErr := errors.New(errors.ErrorTypeValidation, "factory is required")
	wrapped := errors.Wrap(valErr, errors.ErrorTypeConfig, "loading failed")

	fmt.Printf("Is validation error: %v\n", errors.IsType(valErr, errors.ErrorTypeValidation))
	fmt.Printf("Wrapped error is config type: %v\n", errors.IsType(wrapped, errors.ErrorTypeConfig))
	fmt.Printf("Wrapped error is closed type: %v\n", errors.IsType(wrapped, errors.ErrorTypeClosed))

	// Output:
	// Is validation error: true
	// Wrapped error is config type: true
	// Wrapped error is closed type: false
}
