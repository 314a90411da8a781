package hardware

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	deverr "github.com/ixaxaar/gotank/onboard/errors"
)

func testSequencer(t *testing.T, delay time.Duration) (*MockOutputChannel, *StepperSequencer) {
	out := NewMockOutputChannel()
	s, err := NewStepperSequencer(out, StepperConfig{
		CoilPins:    [4]int{10, 11, 12, 13},
		StepsPerRev: 200,
		StepDelay:   delay,
	})
	if err != nil {
		t.Fatal(err)
	}
	return out, s
}

func coilsReleased(out *MockOutputChannel) bool {
	for _, pin := range []int{10, 11, 12, 13} {
		if out.digitalState(pin) {
			return false
		}
	}
	return true
}

func TestStepperSequencer(t *testing.T) {
	out, s := testSequencer(t, time.Microsecond)

	Convey("construction parks at zero with all coils released", t, func() {
		So(s.StepIndex(), ShouldEqual, 0)
		So(s.Angle(), ShouldEqual, 0)
		So(coilsReleased(out), ShouldBeTrue)
	})

	Convey("a cw step advances the counter and energizes the next pattern entry", t, func() {
		So(s.Step(CW), ShouldBeNil)
		So(s.StepIndex(), ShouldEqual, 1)
		// pattern index 1 is coil 2 alone
		So(out.digitalState(10), ShouldBeFalse)
		So(out.digitalState(11), ShouldBeTrue)
		So(out.digitalState(12), ShouldBeFalse)
		So(out.digitalState(13), ShouldBeFalse)
	})

	Convey("cw then ccw is a round trip", t, func() {
		So(s.Rebase(0), ShouldBeNil)
		for i := 0; i < 7; i++ {
			So(s.Step(CW), ShouldBeNil)
		}
		for i := 0; i < 7; i++ {
			So(s.Step(CCW), ShouldBeNil)
		}
		So(s.StepIndex(), ShouldEqual, 0)
	})

	Convey("ccw from zero wraps to the top of the revolution", t, func() {
		So(s.Rebase(0), ShouldBeNil)
		So(s.Step(CCW), ShouldBeNil)
		So(s.StepIndex(), ShouldEqual, 199)
	})

	Convey("stepN advances exactly count steps", t, func() {
		So(s.Rebase(0), ShouldBeNil)
		So(s.StepN(CW, 5), ShouldBeNil)
		So(s.StepIndex(), ShouldEqual, 5)
	})

	Convey("angle is derived from the counter and step quantized", t, func() {
		So(s.Rebase(50), ShouldBeNil)
		So(s.Angle(), ShouldEqual, 90)
		So(s.StepsFor(90), ShouldEqual, 50)
	})

	Convey("panTo takes the shortest path", t, func() {
		Convey("a quarter turn from zero is 50 steps cw", func() {
			So(s.Rebase(0), ShouldBeNil)
			So(s.PanTo(90), ShouldBeNil)
			So(s.StepIndex(), ShouldEqual, 50)
		})

		Convey("a target behind the current position goes ccw", func() {
			So(s.Rebase(0), ShouldBeNil)
			So(s.PanTo(270), ShouldBeNil)
			So(s.StepIndex(), ShouldEqual, 150)
		})

		Convey("an exact half turn tie breaks clockwise", func() {
			So(s.Rebase(0), ShouldBeNil)
			out.resetOps()
			So(s.PanTo(180), ShouldBeNil)
			So(s.StepIndex(), ShouldEqual, 100)

			// the first energization is pattern index 1, which only happens
			// stepping clockwise from zero
			ops := out.opsSnapshot()
			So(len(ops), ShouldBeGreaterThanOrEqualTo, 4)
			first := map[int]int{}
			for _, op := range ops[:4] {
				first[op.pin] = op.val
			}
			So(first[11], ShouldEqual, 1)
		})

		Convey("a no-op target issues no steps", func() {
			So(s.Rebase(50), ShouldBeNil)
			out.resetOps()
			So(s.PanTo(90), ShouldBeNil)
			So(out.opCount(), ShouldEqual, 0)
		})
	})

	Convey("park and center are panTo wrappers", t, func() {
		So(s.Rebase(10), ShouldBeNil)
		So(s.Park(), ShouldBeNil)
		So(s.StepIndex(), ShouldEqual, 0)
		So(s.Center(), ShouldBeNil)
		So(s.StepIndex(), ShouldEqual, 100)
	})

	Convey("out of range angles are rejected with no writes", t, func() {
		out.resetOps()
		for _, angle := range []float64{-5, 360.5, 720} {
			err := s.PanTo(angle)

			var invalid deverr.InvalidParameterError
			So(errors.As(err, &invalid), ShouldBeTrue)
		}
		So(out.opCount(), ShouldEqual, 0)
	})

	Convey("rebase validates its range", t, func() {
		So(s.Rebase(200), ShouldNotBeNil)
		So(s.Rebase(-1), ShouldNotBeNil)
	})

	Convey("a failed coil write releases the coils and keeps the counter", t, func() {
		So(s.Rebase(0), ShouldBeNil)
		out.failPin = 11
		err := s.Step(CW)
		out.failPin = -1

		var hw deverr.HardwareIOError
		So(errors.As(err, &hw), ShouldBeTrue)
		So(s.StepIndex(), ShouldEqual, 0)
		So(coilsReleased(out), ShouldBeTrue)
	})
}

func TestStepperHalt(t *testing.T) {
	out, s := testSequencer(t, time.Millisecond)

	Convey("halt aborts a long sequence on a step boundary", t, func() {
		done := make(chan error, 1)
		go func() {
			done <- s.StepN(CW, 1000)
		}()

		time.Sleep(10 * time.Millisecond)
		So(s.Halt(), ShouldBeNil)

		select {
		case err := <-done:
			So(err, ShouldBeNil)
		case <-time.After(time.Second):
			t.Fatal("StepN did not return after Halt")
		}

		idx := s.StepIndex()
		So(idx, ShouldBeGreaterThan, 0)
		So(idx, ShouldBeLessThan, 200)
		So(coilsReleased(out), ShouldBeTrue)
	})
}
