package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ixaxaar/gotank/onboard"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type teleopAck struct {
	OK    string       `json:"ok,omitempty"`
	Error string       `json:"error,omitempty"`
	State StatePayload `json:"state"`
}

// TeleopHandler streams drive commands over a websocket. The connection is a
// dead man's switch: when it drops for any reason the tank is stopped.
func TeleopHandler(tank *onboard.TankController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("upgrade:", err)
			return
		}
		defer c.Close()
		defer tank.Stop()

		for {
			var msg MovePayload
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("teleop read:", err)
				break
			}

			ack := teleopAck{}
			dir, err := onboard.ParseMotionDirection(msg.Direction)
			if err == nil {
				err = tank.Move(onboard.MotionCommand{
					Direction: dir,
					Speed:     msg.Speed,
					Duration:  time.Duration(msg.DurationMS) * time.Millisecond,
				})
			}
			if err != nil {
				ack.Error = err.Error()
			} else {
				ack.OK = msg.Direction
			}
			ack.State = statePayload(tank)

			if err := c.WriteJSON(ack); err != nil {
				log.Println("teleop write:", err)
				break
			}
		}
	}
}
