package onboard

import (
	"path/filepath"
	"testing"

	"github.com/asdine/storm/v3"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGimbalPersistence(t *testing.T) {
	db, err := storm.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	Convey("restoring with no record leaves the gimbal at zero", t, func() {
		_, tank := newTestTank(t)
		So(RestoreGimbalPosition(db, tank), ShouldBeNil)
		So(tank.GimbalStep(), ShouldEqual, 0)
	})

	Convey("a saved position survives a controller restart", t, func() {
		_, tank := newTestTank(t)
		So(tank.RebaseGimbal(42), ShouldBeNil)
		So(SaveGimbalPosition(db, tank), ShouldBeNil)

		_, fresh := newTestTank(t)
		So(RestoreGimbalPosition(db, fresh), ShouldBeNil)
		So(fresh.GimbalStep(), ShouldEqual, 42)
	})
}
