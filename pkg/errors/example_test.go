// Package errors provides examples of structured error handling in Burger Drop.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeStorage, "failed to save high score")

	err = err.WithDetail("backend", "postgres").
		WithDetail("score", 4200)

	fmt.Println(err.Error())

	// Output:
	// storage: failed to save high score
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.EOF

	err := errors.Wrap(originalErr, errors.ErrorTypeConfig, "failed to read config file").
		WithDetail("file", "burgerdrop.yaml")

	if errors.IsType(err, errors.ErrorTypeConfig) {
		fmt.Println("This is a config error")
	}

	if errors.Is(err, io.EOF) {
		fmt.Println("Original error was EOF")
	}

	// Output:
	// This is a config error
	// Original error was EOF
}

// ExampleIsRetryable shows how to check if an error is retryable.
func ExampleIsRetryable() {
	timeoutErr := errors.New(errors.ErrorTypeTimeout, "high score query timed out")
	validationErr := errors.New(errors.ErrorTypeValidation, "score must not be negative")

	fmt.Printf("Timeout retryable: %v\n", errors.IsRetryable(timeoutErr))
	fmt.Printf("Validation retryable: %v\n", errors.IsRetryable(validationErr))

	// Output:
	// Timeout retryable: true
	// Validation retryable: false
}
