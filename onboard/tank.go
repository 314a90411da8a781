package onboard

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	deverr "github.com/ixaxaar/gotank/onboard/errors"
	"github.com/ixaxaar/gotank/onboard/hardware"
)

// movePollInterval bounds how long a timed Move keeps running after an
// emergency stop is requested from another goroutine.
const movePollInterval = 10 * time.Millisecond

// MotionDirection enumerates the movement intents the tank understands.
type MotionDirection int

const (
	Forward MotionDirection = iota
	Backward
	TurnLeft
	TurnRight
	Stop
)

func (d MotionDirection) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case TurnLeft:
		return "turn_left"
	case TurnRight:
		return "turn_right"
	case Stop:
		return "stop"
	}
	return fmt.Sprintf("MotionDirection(%d)", int(d))
}

// ParseMotionDirection maps wire and shell names onto directions.
func ParseMotionDirection(s string) (MotionDirection, error) {
	switch strings.ToLower(s) {
	case "forward":
		return Forward, nil
	case "backward", "back":
		return Backward, nil
	case "left", "turn_left":
		return TurnLeft, nil
	case "right", "turn_right":
		return TurnRight, nil
	case "stop":
		return Stop, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// MotionCommand is a single movement request. A zero Duration means run until
// the next command; otherwise the tank stops when the duration elapses.
type MotionCommand struct {
	Direction MotionDirection
	Speed     int // percent, 0-100
	Duration  time.Duration
}

// WheelPosition identifies one of the four drive wheels.
type WheelPosition int

const (
	FrontLeft WheelPosition = iota
	RearLeft
	FrontRight
	RearRight
)

func (w WheelPosition) String() string {
	switch w {
	case FrontLeft:
		return "front_left"
	case RearLeft:
		return "rear_left"
	case FrontRight:
		return "front_right"
	}
	return "rear_right"
}

// Wheel to driver assignment is fixed at construction and never reinterpreted
// per call: each side's pair shares one dual driver, front wheel on motor A,
// rear wheel on motor B.
var wheelAssignments = map[WheelPosition]struct {
	left  bool
	motor hardware.Motor
}{
	FrontLeft:  {true, hardware.MotorA},
	RearLeft:   {true, hardware.MotorB},
	FrontRight: {false, hardware.MotorA},
	RearRight:  {false, hardware.MotorB},
}

// ControllerState is the lifecycle state of the tank.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateMoving
	StateStopped
)

func (s ControllerState) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateStopped:
		return "stopped"
	}
	return "idle"
}

// TankController is the sole entry point for movement and gimbal intents and
// the emergency stop authority. It exclusively owns both wheel drivers and
// the gimbal sequencer; nothing else may address the underlying pins.
//
// All hardware affecting calls are serialized on an internal mutex held for
// one logical operation at a time. A timed Move does not hold the mutex while
// waiting, so EmergencyStop from another goroutine preempts it immediately.
type TankController struct {
	left   *hardware.DualMotorDriver
	right  *hardware.DualMotorDriver
	gimbal *hardware.StepperSequencer
	out    hardware.OutputChannel
	nudge  float64 // degrees swept by PanLeft/PanRight

	mu      sync.Mutex
	moving  bool
	stopped atomic.Bool // latched by EmergencyStop, cleared by Reset
	closed  atomic.Bool // latched by Shutdown, terminal
}

// NewTankController wires the four wheels and the gimbal onto out according
// to cfg and brings everything into the stopped state.
func NewTankController(out hardware.OutputChannel, cfg TankConfig) (t *TankController, err error) {
	var leftSet, rightSet [2]hardware.MotorChannelSet
	for pos, a := range wheelAssignments {
		set := cfg.wheelPins(pos).channelSet()
		if a.left {
			leftSet[a.motor] = set
		} else {
			rightSet[a.motor] = set
		}
	}

	t = &TankController{
		left:  hardware.NewDualMotorDriver(out, leftSet[hardware.MotorA], leftSet[hardware.MotorB]),
		right: hardware.NewDualMotorDriver(out, rightSet[hardware.MotorA], rightSet[hardware.MotorB]),
		out:   out,
		nudge: cfg.Gimbal.NudgeDegrees,
	}
	if t.nudge <= 0 {
		t.nudge = DEFAULT_NUDGE_DEGREES
	}

	t.gimbal, err = hardware.NewStepperSequencer(out, cfg.Gimbal.stepperConfig())
	if err != nil {
		return nil, err
	}

	if err = t.Stop(); err != nil {
		return nil, err
	}
	return t, nil
}

// State reports the controller lifecycle state.
func (t *TankController) State() ControllerState {
	if t.closed.Load() || t.stopped.Load() {
		return StateStopped
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.moving {
		return StateMoving
	}
	return StateIdle
}

// Forward drives all four wheels forward at speed percent.
func (t *TankController) Forward(speed int) error {
	return t.drive("drive forward", speed, hardware.Forward, hardware.Forward)
}

// Backward drives all four wheels backward at speed percent.
func (t *TankController) Backward(speed int) error {
	return t.drive("drive backward", speed, hardware.Reverse, hardware.Reverse)
}

// TurnLeft pivots in place: left wheels reverse, right wheels forward, equal
// magnitude.
func (t *TankController) TurnLeft(speed int) error {
	return t.drive("turn left", speed, hardware.Reverse, hardware.Forward)
}

// TurnRight pivots in place: left wheels forward, right wheels reverse, equal
// magnitude.
func (t *TankController) TurnRight(speed int) error {
	return t.drive("turn right", speed, hardware.Forward, hardware.Reverse)
}

func (t *TankController) drive(op string, speed int, leftDir, rightDir hardware.Direction) error {
	// validate-then-act: nothing may reach the hardware on a bad speed
	if err := hardware.ValidatePercent("speed", speed); err != nil {
		return err
	}
	if err := t.guard(op); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	log.Printf("%s at %d%%", op, speed)

	err := t.driveSide(t.left, leftDir, speed)
	if err == nil {
		err = t.driveSide(t.right, rightDir, speed)
	}
	if err != nil {
		// partial motion is unsafe to continue; stop before reporting
		return errors.Join(err, t.stopLocked())
	}

	t.moving = true
	return nil
}

func (t *TankController) driveSide(d *hardware.DualMotorDriver, dir hardware.Direction, speed int) error {
	if err := d.Drive(hardware.MotorA, dir, speed); err != nil {
		return err
	}
	return d.Drive(hardware.MotorB, dir, speed)
}

// Move dispatches a MotionCommand. With a Duration set it blocks for that
// long and then stops the tank. The wait polls the emergency stop latch so a
// concurrent EmergencyStop cuts it short; the interrupted and the natural
// exit share the same trailing stop, ending in identical stopped state.
func (t *TankController) Move(cmd MotionCommand) (err error) {
	switch cmd.Direction {
	case Forward:
		err = t.Forward(cmd.Speed)
	case Backward:
		err = t.Backward(cmd.Speed)
	case TurnLeft:
		err = t.TurnLeft(cmd.Speed)
	case TurnRight:
		err = t.TurnRight(cmd.Speed)
	case Stop:
		return t.Stop()
	default:
		return fmt.Errorf("unknown direction %d", cmd.Direction)
	}
	if err != nil || cmd.Duration <= 0 {
		return
	}

	// Guaranteed on every exit path out of the wait below, panic included.
	defer func() {
		if serr := t.Stop(); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	deadline := time.Now().Add(cmd.Duration)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 || t.stopped.Load() || t.closed.Load() {
			return
		}
		if remaining > movePollInterval {
			remaining = movePollInterval
		}
		time.Sleep(remaining)
	}
}

// Stop halts all four wheels. Both drivers are always attempted and failures
// are reported together, never swallowed. Safe and idempotent from any prior
// state short of a full shutdown.
func (t *TankController) Stop() error {
	if t.closed.Load() {
		return deverr.ControllerShutdownError{Op: "stop"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *TankController) stopLocked() error {
	t.moving = false
	return errors.Join(t.left.StopAll(), t.right.StopAll())
}

// EmergencyStop halts the wheels and the gimbal immediately and latches the
// controller stopped. Motion commands fail with ControllerShutdownError until
// Reset is called. Callable from any goroutine at any time, including while a
// timed Move is waiting.
func (t *TankController) EmergencyStop() error {
	if t.closed.Load() {
		return deverr.ControllerShutdownError{Op: "emergency stop"}
	}

	// Latch before touching hardware; timed moves poll this.
	t.stopped.Store(true)
	gerr := t.gimbal.Halt()

	t.mu.Lock()
	defer t.mu.Unlock()
	log.Print("emergency stop")
	return errors.Join(t.stopLocked(), gerr)
}

// Reset clears the latch left by EmergencyStop so motion commands are
// accepted again. It fails once the controller has been shut down.
func (t *TankController) Reset() error {
	if t.closed.Load() {
		return deverr.ControllerShutdownError{Op: "reset"}
	}
	t.stopped.Store(false)
	t.gimbal.Resume()
	return nil
}

// PanGimbal points the camera at angle degrees along the shortest path.
func (t *TankController) PanGimbal(angle float64) error {
	if err := t.guard("pan gimbal"); err != nil {
		return err
	}
	return t.gimbal.PanTo(angle)
}

// PanLeft nudges the gimbal counter-clockwise by the configured sweep.
func (t *TankController) PanLeft() error {
	return t.nudgeGimbal(hardware.CCW)
}

// PanRight nudges the gimbal clockwise by the configured sweep.
func (t *TankController) PanRight() error {
	return t.nudgeGimbal(hardware.CW)
}

func (t *TankController) nudgeGimbal(dir hardware.StepDirection) error {
	if err := t.guard("pan gimbal"); err != nil {
		return err
	}
	return t.gimbal.StepN(dir, t.gimbal.StepsFor(t.nudge))
}

// CenterGimbal points the camera at 180 degrees.
func (t *TankController) CenterGimbal() error {
	if err := t.guard("center gimbal"); err != nil {
		return err
	}
	return t.gimbal.Center()
}

// ParkGimbal returns the camera to the zero position.
func (t *TankController) ParkGimbal() error {
	if err := t.guard("park gimbal"); err != nil {
		return err
	}
	return t.gimbal.Park()
}

// GimbalAngle reports the camera angle in degrees, [0, 360).
func (t *TankController) GimbalAngle() float64 {
	return t.gimbal.Angle()
}

// GimbalStep reports the gimbal's absolute step within one revolution.
func (t *TankController) GimbalStep() int {
	return t.gimbal.StepIndex()
}

// RebaseGimbal overwrites the gimbal position counter without motion. This is
// the external re-zero hook for a counter gone stale (the stepper has no
// feedback sensing).
func (t *TankController) RebaseGimbal(step int) error {
	if t.closed.Load() {
		return deverr.ControllerShutdownError{Op: "rebase gimbal"}
	}
	return t.gimbal.Rebase(step)
}

// Shutdown performs an emergency stop and releases the output channels. The
// controller is unusable afterwards; every further call fails with
// ControllerShutdownError.
func (t *TankController) Shutdown() error {
	if t.closed.Load() {
		return deverr.ControllerShutdownError{Op: "shutdown"}
	}

	err := t.EmergencyStop()
	t.closed.Store(true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if closer, ok := t.out.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func (t *TankController) guard(op string) error {
	if t.closed.Load() || t.stopped.Load() {
		return deverr.ControllerShutdownError{Op: op}
	}
	return nil
}
