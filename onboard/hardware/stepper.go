package hardware

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	deverr "github.com/ixaxaar/gotank/onboard/errors"
)

// StepDirection selects the rotation sense of the stepper.
type StepDirection int

const (
	CW StepDirection = iota
	CCW
)

func (d StepDirection) String() string {
	if d == CCW {
		return "ccw"
	}
	return "cw"
}

// Coil energization cycles. Each entry is a bitmask over the four coil pins,
// bit i driving pin i. One transition through the cycle is one mechanical
// step (full step) or half a step (half step).
var (
	fullStepPattern = []uint8{0b0001, 0b0010, 0b0100, 0b1000}
	halfStepPattern = []uint8{0b0001, 0b0011, 0b0010, 0b0110, 0b0100, 0b1100, 0b1000, 0b1001}
)

// StepperConfig fixes the physical parameters of a 4-phase stepper at
// construction time. StepsPerRev must match the mode: a motor stepped in
// half-step mode takes twice as many steps per revolution.
type StepperConfig struct {
	CoilPins    [4]int
	StepsPerRev int           // defaults to 200
	StepDelay   time.Duration // minimum dwell between consecutive steps; defaults to 2ms
	HalfStep    bool
}

// StepperSequencer advances a 4-phase coil pattern across four digital
// channels. There is no feedback sensing, so the internal counter is the only
// source of truth for position; if power is lost mid sequence the counter is
// stale until Rebase is called.
type StepperSequencer struct {
	out     OutputChannel
	cfg     StepperConfig
	pattern []uint8

	mu     sync.Mutex
	step   int // absolute step within the revolution, [0, StepsPerRev)
	halted atomic.Bool
}

// NewStepperSequencer creates the sequencer parked at step 0 with all coils
// released.
func NewStepperSequencer(out OutputChannel, cfg StepperConfig) (*StepperSequencer, error) {
	if cfg.StepsPerRev == 0 {
		cfg.StepsPerRev = 200
	}
	if cfg.StepsPerRev < 0 {
		return nil, deverr.InvalidParameterError{Name: "steps per revolution", Value: float64(cfg.StepsPerRev), Min: 1, Max: math.MaxInt32}
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 2 * time.Millisecond
	}

	pattern := fullStepPattern
	if cfg.HalfStep {
		pattern = halfStepPattern
	}

	s := &StepperSequencer{
		out:     out,
		cfg:     cfg,
		pattern: pattern,
	}
	if err := s.Release(); err != nil {
		return nil, err
	}
	return s, nil
}

// StepIndex reports the current absolute step within one revolution.
func (s *StepperSequencer) StepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Angle reports the current position in degrees, [0, 360). The angle is
// derived from the step counter and never tracked separately, so it is always
// step quantized.
func (s *StepperSequencer) Angle() float64 {
	return float64(s.StepIndex()) * 360.0 / float64(s.cfg.StepsPerRev)
}

// StepsFor converts an angular distance in degrees to the nearest whole step
// count.
func (s *StepperSequencer) StepsFor(degrees float64) int {
	return int(math.Round(math.Abs(degrees) / 360.0 * float64(s.cfg.StepsPerRev)))
}

// Step advances the sequencer one step in dir and energizes the coil pattern
// at the new index. On a failed write the coils are released best effort and
// the counter is not advanced.
func (s *StepperSequencer) Step(dir StepDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.step + 1
	if dir == CCW {
		next = s.step - 1
	}
	next = mod(next, s.cfg.StepsPerRev)

	if err := s.energize(s.pattern[mod(next, len(s.pattern))]); err != nil {
		return errors.Join(err, s.releaseLocked())
	}
	s.step = next
	return nil
}

// StepN issues count steps in dir, dwelling the configured inter-step delay
// after each one. It aborts early, leaving the coils released, if Halt is
// called from another goroutine; the abort lands on a whole step boundary.
// The halt latch stays set until Resume, so a StepN racing a halt cannot
// sneak past it.
func (s *StepperSequencer) StepN(dir StepDirection, count int) error {
	if count < 0 {
		return deverr.InvalidParameterError{Name: "step count", Value: float64(count), Min: 0, Max: math.MaxInt32}
	}

	for i := 0; i < count; i++ {
		if s.halted.Load() {
			return nil
		}
		if err := s.Step(dir); err != nil {
			return err
		}
		time.Sleep(s.cfg.StepDelay)
	}
	return nil
}

// PanTo rotates to the step nearest targetAngle along the shortest angular
// path. When both directions need the same number of steps the rotation is
// clockwise.
func (s *StepperSequencer) PanTo(targetAngle float64) error {
	if targetAngle < 0 || targetAngle > 360 {
		return deverr.InvalidParameterError{Name: "angle", Value: targetAngle, Min: 0, Max: 360}
	}

	target := int(math.Round(targetAngle/360.0*float64(s.cfg.StepsPerRev))) % s.cfg.StepsPerRev

	s.mu.Lock()
	diff := mod(target-s.step, s.cfg.StepsPerRev)
	s.mu.Unlock()

	if diff == 0 {
		return nil
	}
	if diff <= s.cfg.StepsPerRev/2 {
		return s.StepN(CW, diff)
	}
	return s.StepN(CCW, s.cfg.StepsPerRev-diff)
}

// Park returns the gimbal to the zero position.
func (s *StepperSequencer) Park() error {
	return s.PanTo(0)
}

// Center points the gimbal at 180 degrees.
func (s *StepperSequencer) Center() error {
	return s.PanTo(180)
}

// Halt aborts any in-progress StepN at the next step boundary and releases
// the coils. No partial step is applied and the counter stays valid. Further
// step sequences are refused until Resume.
func (s *StepperSequencer) Halt() error {
	s.halted.Store(true)
	return s.Release()
}

// Resume lifts the halt latch so step sequences run again.
func (s *StepperSequencer) Resume() {
	s.halted.Store(false)
}

// Release de-energizes all four coils. The rotor freewheels; position is
// retained in the counter only.
func (s *StepperSequencer) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}

// Rebase overwrites the position counter without moving the motor. This is
// the external re-zeroing hook for when the counter has gone stale, e.g.
// after a power loss mid sequence, or to restore a persisted position at
// startup.
func (s *StepperSequencer) Rebase(step int) error {
	if step < 0 || step >= s.cfg.StepsPerRev {
		return deverr.InvalidParameterError{Name: "step", Value: float64(step), Min: 0, Max: float64(s.cfg.StepsPerRev - 1)}
	}

	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
	return nil
}

func (s *StepperSequencer) energize(mask uint8) error {
	for i, pin := range s.cfg.CoilPins {
		high := mask&(1<<uint(i)) != 0
		if err := s.out.SetDigital(pin, high); err != nil {
			return deverr.HardwareIOError{Pin: pin, Op: "digital", Cause: err}
		}
	}
	return nil
}

// releaseLocked lowers every coil, attempting all pins even after a failure.
func (s *StepperSequencer) releaseLocked() error {
	var err error
	for _, pin := range s.cfg.CoilPins {
		if werr := s.out.SetDigital(pin, false); werr != nil {
			err = errors.Join(err, deverr.HardwareIOError{Pin: pin, Op: "digital", Cause: werr})
		}
	}
	return err
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
