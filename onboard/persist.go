package onboard

import (
	"time"

	"github.com/asdine/storm/v3"
)

// GimbalPosition is the persisted stepper counter. With no feedback sensing
// the counter is lost on restart; saving it at shutdown narrows the window in
// which the gimbal has to be re-zeroed by hand.
type GimbalPosition struct {
	ID      int `storm:"id"`
	Step    int
	SavedAt time.Time
}

const gimbalRecordID = 1

// SaveGimbalPosition records the controller's current gimbal step.
func SaveGimbalPosition(db *storm.DB, t *TankController) error {
	return db.Save(&GimbalPosition{
		ID:      gimbalRecordID,
		Step:    t.GimbalStep(),
		SavedAt: time.Now(),
	})
}

// RestoreGimbalPosition rebases the gimbal onto the last persisted step. A
// missing record is not an error; the gimbal simply starts at zero.
func RestoreGimbalPosition(db *storm.DB, t *TankController) error {
	var rec GimbalPosition
	if err := db.One("ID", gimbalRecordID, &rec); err != nil {
		if err == storm.ErrNotFound {
			return nil
		}
		return err
	}
	return t.RebaseGimbal(rec.Step)
}
