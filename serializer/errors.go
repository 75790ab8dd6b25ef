package serializer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSerializationType is returned when a value has no transport conversion.
	ErrUnsupportedSerializationType = errors.New("unsupported serialization type")

	// ErrInvalidText is returned, together with ErrUnsupportedSerializationType,
	// when a byte value is not valid UTF-8.
	ErrInvalidText = errors.New("bytes are not valid UTF-8")
)

// UnsupportedTypeError names the Go type (and database type, when known)
// that could not be converted.
type UnsupportedTypeError struct {
	GoType string
	DBType string
}

func (e *UnsupportedTypeError) Error() string {
	if e.DBType != "" {
		return fmt.Sprintf("serializer: type [%s] (column type %s) cannot be serialized", e.GoType, e.DBType)
	}
	return fmt.Sprintf("serializer: type [%s] cannot be serialized", e.GoType)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedSerializationType
}
