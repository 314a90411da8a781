package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/ixaxaar/gotank/onboard"
)

// startShell runs the local development shell. It mirrors the HTTP API so the
// tank can be exercised from a serial console with no network at all.
func startShell(tank *onboard.TankController) {
	shell := ishell.New()
	shell.Println("gotank development shell")
	shell.ShowPrompt(true)

	moveCmd := func(name string, dir onboard.MotionDirection) *ishell.Cmd {
		return &ishell.Cmd{
			Name: name,
			Help: name + " <speed 0-100> [seconds]",
			Func: func(c *ishell.Context) {
				if len(c.Args) < 1 {
					c.Err(errors.New("speed required"))
					return
				}
				speed, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}

				var duration time.Duration
				if len(c.Args) >= 2 {
					secs, err := strconv.ParseFloat(c.Args[1], 64)
					if err != nil {
						c.Err(err)
						return
					}
					duration = time.Duration(secs * float64(time.Second))
				}

				c.Printf("%s at %d%%\n", name, speed)
				if err := tank.Move(onboard.MotionCommand{Direction: dir, Speed: speed, Duration: duration}); err != nil {
					c.Err(err)
				}
			},
		}
	}

	shell.AddCmd(moveCmd("forward", onboard.Forward))
	shell.AddCmd(moveCmd("backward", onboard.Backward))
	shell.AddCmd(moveCmd("left", onboard.TurnLeft))
	shell.AddCmd(moveCmd("right", onboard.TurnRight))

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Func: func(c *ishell.Context) {
			if err := tank.Stop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "estop",
		Help: "emergency stop; motion stays locked out until reset",
		Func: func(c *ishell.Context) {
			if err := tank.EmergencyStop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "reset",
		Func: func(c *ishell.Context) {
			if err := tank.Reset(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "pan",
		Help: "pan <angle 0-360> | pan left | pan right",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errors.New("angle or left/right required"))
				return
			}

			var err error
			switch c.Args[0] {
			case "left":
				err = tank.PanLeft()
			case "right":
				err = tank.PanRight()
			default:
				var angle float64
				angle, err = strconv.ParseFloat(c.Args[0], 64)
				if err == nil {
					err = tank.PanGimbal(angle)
				}
			}
			if err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "center",
		Func: func(c *ishell.Context) {
			if err := tank.CenterGimbal(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "park",
		Func: func(c *ishell.Context) {
			if err := tank.ParkGimbal(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "rezero",
		Help: "rezero [step]; declare the gimbal's true position after a stale counter",
		Func: func(c *ishell.Context) {
			step := 0
			if len(c.Args) >= 1 {
				var err error
				step, err = strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
			}
			if err := tank.RebaseGimbal(step); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Func: func(c *ishell.Context) {
			c.Printf("%s gimbal=%0.1f° (step %d)\n", tank.State(), tank.GimbalAngle(), tank.GimbalStep())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			user := &User{
				Email: email,
				Name:  email,
				Admin: true,
			}
			user.SetPassword([]byte(password))
			if err := ENV.DB.Save(user); err != nil {
				c.Err(err)
				return
			}

			c.Println("Superuser created")
		},
	})

	shell.Start()
}
