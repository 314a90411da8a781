package errors

import "fmt"

// InvalidParameterError reports a caller supplied value outside its legal
// range. It is always raised before any hardware write takes place.
type InvalidParameterError struct {
	Name     string
	Value    float64
	Min, Max float64
}

func (err InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %g; must be within [%g, %g]", err.Name, err.Value, err.Min, err.Max)
}

// HardwareIOError wraps a failed write to an output channel. Writes are never
// retried; the caller decides whether to escalate to a full stop.
type HardwareIOError struct {
	Pin   int
	Op    string
	Cause error
}

func (err HardwareIOError) Error() string {
	return fmt.Sprintf("hardware %s write failed on pin %d: %v", err.Op, err.Pin, err.Cause)
}

func (err HardwareIOError) Unwrap() error {
	return err.Cause
}

// ControllerShutdownError is returned for any operation attempted while the
// controller is latched stopped or after it has been shut down.
type ControllerShutdownError struct {
	Op string
}

func (err ControllerShutdownError) Error() string {
	if len(err.Op) == 0 {
		err.Op = "UNKNOWN"
	}

	return fmt.Sprintf("controller is shut down; refusing to %s", err.Op)
}
