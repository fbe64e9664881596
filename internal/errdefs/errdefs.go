// Package errdefs defines the two error classes the fitting engine reports.
//
// A ConfigurationError describes a structurally broken setup: a missing or
// ambiguous parameter name, mismatched array lengths, an unknown kernel or
// distribution. It is always fatal and surfaces before sampling starts.
//
// A NumericalError describes a failure of the linear algebra for one specific
// parameter draw (a covariance that is not positive-definite, a singular
// solve). During sampling it is mapped to a -Inf log-likelihood; during setup
// validation it is fatal like a ConfigurationError.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a setup problem. Empty context fields are omitted
// from the message.
type ConfigurationError struct {
	Instrument string
	Parameter  string
	Kernel     string
	Msg        string
	Err        error
}

func (e *ConfigurationError) Error() string {
	return format("configuration error", e.Instrument, e.Parameter, e.Kernel, e.Msg, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NumericalError reports a linear-algebra failure for one parameter draw.
type NumericalError struct {
	Instrument string
	Kernel     string
	Msg        string
	Err        error
}

func (e *NumericalError) Error() string {
	return format("numerical error", e.Instrument, "", e.Kernel, e.Msg, e.Err)
}

func (e *NumericalError) Unwrap() error { return e.Err }

// Configf builds a ConfigurationError with a formatted message.
func Configf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// Numericalf builds a NumericalError with a formatted message.
func Numericalf(format string, args ...any) *NumericalError {
	return &NumericalError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNumerical reports whether err wraps a NumericalError.
func IsNumerical(err error) bool {
	var ne *NumericalError
	return errors.As(err, &ne)
}

// WithInstrument attaches instrument context to err if it is one of the
// package's error types and the field is still empty. Other errors pass
// through unchanged.
func WithInstrument(err error, instrument string) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) && ce.Instrument == "" {
		ce.Instrument = instrument
		return err
	}
	var ne *NumericalError
	if errors.As(err, &ne) && ne.Instrument == "" {
		ne.Instrument = instrument
	}
	return err
}

func format(class, instrument, parameter, kernel, msg string, err error) string {
	var b strings.Builder
	b.WriteString(class)
	var ctx []string
	if instrument != "" {
		ctx = append(ctx, "instrument="+instrument)
	}
	if parameter != "" {
		ctx = append(ctx, "parameter="+parameter)
	}
	if kernel != "" {
		ctx = append(ctx, "kernel="+kernel)
	}
	if len(ctx) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString("]")
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}
