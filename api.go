package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/ixaxaar/gotank/onboard"
	deverr "github.com/ixaxaar/gotank/onboard/errors"
)

//---
// Payloads
//---

type MovePayload struct {
	Direction  string `json:"direction"`
	Speed      int    `json:"speed"`
	DurationMS int    `json:"duration_ms,omitempty"`
}

func (p *MovePayload) Bind(r *http.Request) error {
	_, err := onboard.ParseMotionDirection(p.Direction)
	return err
}

func (p *MovePayload) command(dir onboard.MotionDirection) onboard.MotionCommand {
	return onboard.MotionCommand{
		Direction: dir,
		Speed:     p.Speed,
		Duration:  time.Duration(p.DurationMS) * time.Millisecond,
	}
}

type GimbalPayload struct {
	Angle *float64 `json:"angle,omitempty"`
	Nudge string   `json:"nudge,omitempty"` // "left" or "right"
}

func (p *GimbalPayload) Bind(r *http.Request) error {
	if p.Angle == nil && p.Nudge == "" {
		return errors.New("either angle or nudge is required")
	}
	return nil
}

type StatePayload struct {
	State       string  `json:"state"`
	GimbalAngle float64 `json:"gimbal_angle"`
	GimbalStep  int     `json:"gimbal_step"`
}

func statePayload(tank *onboard.TankController) StatePayload {
	return StatePayload{
		State:       tank.State().String(),
		GimbalAngle: tank.GimbalAngle(),
		GimbalStep:  tank.GimbalStep(),
	}
}

//---
// Views
//---

// MoveHandler accepts a motion command. With duration_ms set the request
// blocks until the move completes or is emergency stopped.
func MoveHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &MovePayload{}
		if err := render.Bind(r, data); err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}

		dir, _ := onboard.ParseMotionDirection(data.Direction)
		if err := tank.Move(data.command(dir)); err != nil {
			render.Render(w, r, ErrDevice(err))
			return
		}
		render.JSON(w, r, statePayload(tank))
	}
}

func StopHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tank.Stop(); err != nil {
			render.Render(w, r, ErrDevice(err))
			return
		}
		render.JSON(w, r, statePayload(tank))
	}
}

func EmergencyStopHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tank.EmergencyStop(); err != nil {
			render.Render(w, r, ErrDevice(err))
			return
		}
		render.JSON(w, r, statePayload(tank))
	}
}

func ResetHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tank.Reset(); err != nil {
			render.Render(w, r, ErrDevice(err))
			return
		}
		render.JSON(w, r, statePayload(tank))
	}
}

func GimbalHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &GimbalPayload{}
		if err := render.Bind(r, data); err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}

		var err error
		switch {
		case data.Angle != nil:
			err = tank.PanGimbal(*data.Angle)
		case data.Nudge == "left":
			err = tank.PanLeft()
		case data.Nudge == "right":
			err = tank.PanRight()
		default:
			render.Render(w, r, ErrInvalidRequest(errors.New("nudge must be left or right")))
			return
		}
		if err != nil {
			render.Render(w, r, ErrDevice(err))
			return
		}
		render.JSON(w, r, statePayload(tank))
	}
}

func StateHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, statePayload(tank))
	}
}

//---
// Error responses
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

// ErrDevice maps the device error taxonomy onto HTTP status codes.
func ErrDevice(err error) render.Renderer {
	var (
		invalid  deverr.InvalidParameterError
		shutdown deverr.ControllerShutdownError
	)

	status := http.StatusInternalServerError // hardware IO and anything else
	switch {
	case errors.As(err, &invalid):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &shutdown):
		status = http.StatusConflict
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     "Device error.",
		ErrorText:      err.Error(),
	}
}
