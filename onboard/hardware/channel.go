package hardware

import (
	deverr "github.com/ixaxaar/gotank/onboard/errors"
)

// OutputChannel is the boundary to the physical output pins. Pin numbers are
// opaque identifiers assigned by configuration and are not interpreted here.
//
// Writes must not be retried by implementations; a failed write surfaces to
// the caller, which decides whether to escalate to a full stop. Repeating a
// write with the same value is idempotent.
type OutputChannel interface {
	// SetDigital drives pin fully high or low.
	SetDigital(pin int, high bool) error

	// SetPWM sets the duty cycle on pin as a percentage in [0, 100].
	SetPWM(pin int, duty int) error
}

// ValidatePercent rejects values outside [0, 100] before any hardware write.
func ValidatePercent(name string, v int) error {
	if v < 0 || v > 100 {
		return deverr.InvalidParameterError{Name: name, Value: float64(v), Min: 0, Max: 100}
	}
	return nil
}
