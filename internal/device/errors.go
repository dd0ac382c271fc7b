package device

import (
	"errors"
	"fmt"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

var (
	// ErrDeviceNotFound is returned when a serial is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnknownField is returned by Set for a field name no variant carries.
	ErrUnknownField = errors.New("device: unknown field")
)

// ImmutableFieldError is returned on any attempt to set an identity or read-only field.
type ImmutableFieldError struct {
	Serial string
	Field  Field
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("device %s: field %s cannot be set", e.Serial, e.Field)
}

// CapabilityError is returned when the device's variant does not support an operation.
type CapabilityError struct {
	Serial  string
	Variant model.Variant
	Op      string
	Reason  string
}

func (e *CapabilityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("device %s (%s): %s: %s", e.Serial, e.Variant, e.Op, e.Reason)
	}
	return fmt.Sprintf("device %s (%s): %s not supported", e.Serial, e.Variant, e.Op)
}

// ProgramNotFoundError is returned, without any remote call, when a program id is not in
// the device's known program set.
type ProgramNotFoundError struct {
	Serial    string
	ProgramID string
}

func (e *ProgramNotFoundError) Error() string {
	return fmt.Sprintf("device %s: program %s is not defined", e.Serial, e.ProgramID)
}
