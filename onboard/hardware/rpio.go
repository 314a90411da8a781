package hardware

import (
	"github.com/stianeikeland/go-rpio/v4"
)

const (
	// PWM_FREQUENCY matches the 1kHz the L298N boards are driven at.
	PWM_FREQUENCY = 1000
	pwmCycleLen   = 100 // duty resolution maps 1:1 onto percent
)

// RPIOChannel drives Raspberry Pi GPIO pins through /dev/gpiomem. Pin numbers
// are BCM numbers. The mapping is process global, so only one channel should
// be open at a time; the controller's exclusive ownership takes care of that.
type RPIOChannel struct{}

// OpenRPIOChannel memory maps the GPIO registers. Close must be called when
// finished so the mapping is released.
func OpenRPIOChannel() (*RPIOChannel, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	return &RPIOChannel{}, nil
}

func (c *RPIOChannel) SetDigital(pin int, high bool) error {
	p := rpio.Pin(pin)
	p.Output()
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (c *RPIOChannel) SetPWM(pin int, duty int) error {
	if err := ValidatePercent("duty cycle", duty); err != nil {
		return err
	}

	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	p.Freq(PWM_FREQUENCY * pwmCycleLen)
	p.DutyCycle(uint32(duty), pwmCycleLen)
	return nil
}

func (c *RPIOChannel) Close() error {
	return rpio.Close()
}
