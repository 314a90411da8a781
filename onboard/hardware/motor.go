package hardware

import (
	"errors"

	deverr "github.com/ixaxaar/gotank/onboard/errors"
)

// Motor selects one of the two H-bridge outputs on a dual driver IC.
type Motor int

const (
	MotorA Motor = iota
	MotorB
)

// Direction of motor rotation.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// MotorChannelSet groups the three output pins controlling a single motor:
// the PWM speed pin plus one digital pin per rotation direction.
type MotorChannelSet struct {
	PWMPin     int
	ForwardPin int
	ReversePin int
}

// DualMotorDriver owns the output channels of one dual H-bridge driver IC
// (e.g. an L298N). It guarantees the forward and reverse pins of a motor are
// never high together: the opposite direction pin is always lowered before
// the requested one is raised.
type DualMotorDriver struct {
	out      OutputChannel
	channels [2]MotorChannelSet
	duty     [2]int
}

func NewDualMotorDriver(out OutputChannel, a, b MotorChannelSet) *DualMotorDriver {
	return &DualMotorDriver{
		out:      out,
		channels: [2]MotorChannelSet{a, b},
	}
}

// DutyCycle reports the currently commanded speed of motor in percent.
func (d *DualMotorDriver) DutyCycle(m Motor) int {
	return d.duty[m]
}

// Drive runs motor in the given direction at speed percent. A speed of 0 is
// equivalent to Stop. On a failed write the remaining writes for this call
// are abandoned, a best effort stop of the motor is attempted and the write
// error is returned.
func (d *DualMotorDriver) Drive(m Motor, dir Direction, speed int) error {
	if err := ValidatePercent("speed", speed); err != nil {
		return err
	}
	if speed == 0 {
		return d.Stop(m)
	}

	ch := d.channels[m]
	lower, raise := ch.ReversePin, ch.ForwardPin
	if dir == Reverse {
		lower, raise = ch.ForwardPin, ch.ReversePin
	}

	// Drop the opposite direction pin before raising the requested one so
	// both can never be high at the same instant.
	if err := d.write(lower, false); err != nil {
		return errors.Join(err, d.Stop(m))
	}
	if err := d.write(raise, true); err != nil {
		return errors.Join(err, d.Stop(m))
	}
	if err := d.pwm(m, speed); err != nil {
		return errors.Join(err, d.Stop(m))
	}
	return nil
}

// Stop lowers both direction pins and zeroes the PWM duty for motor. It is
// safe from any prior state; every write is attempted even if an earlier one
// fails, and failures are reported together.
func (d *DualMotorDriver) Stop(m Motor) error {
	ch := d.channels[m]
	return errors.Join(
		d.write(ch.ForwardPin, false),
		d.write(ch.ReversePin, false),
		d.pwm(m, 0),
	)
}

// StopAll stops both motors. Both are attempted regardless of failures.
func (d *DualMotorDriver) StopAll() error {
	return errors.Join(d.Stop(MotorA), d.Stop(MotorB))
}

func (d *DualMotorDriver) write(pin int, high bool) error {
	if err := d.out.SetDigital(pin, high); err != nil {
		return deverr.HardwareIOError{Pin: pin, Op: "digital", Cause: err}
	}
	return nil
}

func (d *DualMotorDriver) pwm(m Motor, duty int) error {
	ch := d.channels[m]
	if err := d.out.SetPWM(ch.PWMPin, duty); err != nil {
		return deverr.HardwareIOError{Pin: ch.PWMPin, Op: "pwm", Cause: err}
	}
	d.duty[m] = duty
	return nil
}
