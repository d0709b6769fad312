/*
@Description: error kinds surfaced at the codec's API boundary
@Language: Go 1.23.4
*/

package fecgo

import (
	stderrors "errors"

	"github.com/pkg/errors"

	"fecgo/galois"
)

// ErrorCode is the C-compatible error enumeration from spec §6, kept
// around so a future cgo/FFI binding can map one-to-one onto it
// without the internal Go error types leaking across that boundary.
type ErrorCode uint8

const (
	ErrNone ErrorCode = iota
	ErrPacketType
	ErrOverflow
	ErrInvalidLength
	ErrNoMemory
	ErrUnknown
)

// codedError is satisfied by every error kind the codec returns at its
// API boundary (spec §7).
type codedError interface {
	error
	Code() ErrorCode
}

// PacketTypeError means a frame's leading type tag didn't match any
// known packet kind, or was routed to the wrong codec side (e.g. an
// ack delivered to a decoder).
type PacketTypeError struct{ cause error }

func newPacketTypeError(msg string) error {
	return &PacketTypeError{cause: errors.New(msg)}
}

func (e *PacketTypeError) Error() string  { return "fecgo: packet type error: " + e.cause.Error() }
func (e *PacketTypeError) Code() ErrorCode { return ErrPacketType }
func (e *PacketTypeError) Unwrap() error  { return e.cause }

// OverflowError means reading a frame would read past the caller-
// supplied max_len.
type OverflowError struct{ cause error }

func newOverflowError(msg string) error {
	return &OverflowError{cause: errors.New(msg)}
}

func (e *OverflowError) Error() string  { return "fecgo: overflow: " + e.cause.Error() }
func (e *OverflowError) Code() ErrorCode { return ErrOverflow }
func (e *OverflowError) Unwrap() error  { return e.cause }

// InvalidLengthError means an admitted symbol's length violates the
// configured Galois field's alignment requirement.
type InvalidLengthError struct{ cause error }

func newInvalidLengthError(msg string) error {
	return &InvalidLengthError{cause: errors.New(msg)}
}

func (e *InvalidLengthError) Error() string  { return "fecgo: invalid length: " + e.cause.Error() }
func (e *InvalidLengthError) Code() ErrorCode { return ErrInvalidLength }
func (e *InvalidLengthError) Unwrap() error  { return e.cause }

// NoMemoryError wraps allocation failures (spec §7); reachable in
// practice only if the runtime itself panics on OOM, but kept as a
// distinct type so a caller's error-kind switch stays exhaustive.
type NoMemoryError struct{ cause error }

func (e *NoMemoryError) Error() string  { return "fecgo: no memory: " + e.cause.Error() }
func (e *NoMemoryError) Code() ErrorCode { return ErrNoMemory }
func (e *NoMemoryError) Unwrap() error  { return e.cause }

// UnknownError is the catch-all with a human-readable message.
type UnknownError struct{ cause error }

func newUnknownError(err error) error {
	return &UnknownError{cause: errors.WithStack(err)}
}

func (e *UnknownError) Error() string  { return "fecgo: " + e.cause.Error() }
func (e *UnknownError) Code() ErrorCode { return ErrUnknown }
func (e *UnknownError) Unwrap() error  { return e.cause }

// wrapFieldError lifts an error from the galois package to the codec's
// API-boundary error kinds (spec §7): a lane-alignment violation becomes
// InvalidLengthError, anything else is wrapped as UnknownError.
func wrapFieldError(err error) error {
	if err == nil {
		return nil
	}
	var invLen *galois.InvalidLengthError
	if stderrors.As(err, &invLen) {
		return newInvalidLengthError(err.Error())
	}
	return newUnknownError(err)
}
