package onboard

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver"
	"github.com/ixaxaar/gotank/onboard/hardware"
)

const (
	// SCHEMA_VERSION constrains the config schema this build understands.
	SCHEMA_VERSION = "~1.0.0"

	// DEFAULT_NUDGE_DEGREES is the gimbal sweep used by PanLeft/PanRight
	// when the config does not set one.
	DEFAULT_NUDGE_DEGREES = 15.0
)

// WheelPins is the output channel triple driving one wheel motor.
type WheelPins struct {
	PWM     int `yaml:"pwm"`
	Forward int `yaml:"forward"`
	Reverse int `yaml:"reverse"`
}

// GimbalConfig describes the camera gimbal stepper.
type GimbalConfig struct {
	Pins         []int   `yaml:"pins,flow"` // the 4 coil pins, in phase order
	StepsPerRev  int     `yaml:"steps_per_revolution"`
	StepDelayMS  int     `yaml:"step_delay_ms"`
	HalfStep     bool    `yaml:"half_step"`
	NudgeDegrees float64 `yaml:"nudge_degrees"`
}

// TankConfig is the fully loaded hardware layout. It arrives validated from
// the config loader; the controller consumes it, it never parses files
// itself.
type TankConfig struct {
	Schema   string `yaml:"schema"`
	Mobility struct {
		FrontLeft  WheelPins `yaml:"front_left"`
		RearLeft   WheelPins `yaml:"rear_left"`
		FrontRight WheelPins `yaml:"front_right"`
		RearRight  WheelPins `yaml:"rear_right"`
	} `yaml:"mobility"`
	Gimbal GimbalConfig `yaml:"camera_gimbal"`
}

// Validate checks the schema version and pin layout before any hardware is
// touched.
func (c TankConfig) Validate() (err error) {
	constraint, err := semver.NewConstraint(SCHEMA_VERSION)
	if err != nil {
		return
	}

	version, err := semver.NewVersion(c.Schema)
	if err != nil {
		return fmt.Errorf("bad config schema %q: %v", c.Schema, err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("unsupported config schema %s - require %s", c.Schema, SCHEMA_VERSION)
	}

	if len(c.Gimbal.Pins) != 4 {
		return fmt.Errorf("camera gimbal needs exactly 4 coil pins, got %d", len(c.Gimbal.Pins))
	}

	return nil
}

func (p WheelPins) channelSet() hardware.MotorChannelSet {
	return hardware.MotorChannelSet{
		PWMPin:     p.PWM,
		ForwardPin: p.Forward,
		ReversePin: p.Reverse,
	}
}

func (c TankConfig) wheelPins(w WheelPosition) WheelPins {
	switch w {
	case FrontLeft:
		return c.Mobility.FrontLeft
	case RearLeft:
		return c.Mobility.RearLeft
	case FrontRight:
		return c.Mobility.FrontRight
	default:
		return c.Mobility.RearRight
	}
}

func (c GimbalConfig) stepperConfig() hardware.StepperConfig {
	return hardware.StepperConfig{
		CoilPins:    [4]int{c.Pins[0], c.Pins[1], c.Pins[2], c.Pins[3]},
		StepsPerRev: c.StepsPerRev,
		StepDelay:   time.Duration(c.StepDelayMS) * time.Millisecond,
		HalfStep:    c.HalfStep,
	}
}
