package picar

import (
	"context"
	"testing"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"
)

// testHardware builds a dispatcher over explicit virtual backends so tests
// can assert the exact call sequence each operation produces.
func testHardware(t *testing.T, cfg HardwareConfig) (*Hardware, *VirtualSteering, *VirtualDrive) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	steer := NewVirtualSteering(logger, false)
	drive := NewVirtualDrive(logger, false)
	cfg.Steering = steer
	cfg.Drive = drive
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Millisecond
	}
	hw, err := NewHardware(context.Background(), cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	return hw, steer, drive
}

func TestNewHardware(t *testing.T) {
	ctx := context.Background()

	t.Run("virtual backend built internally", func(t *testing.T) {
		hw, err := NewHardware(ctx, HardwareConfig{
			Virtual:     true,
			SettleDelay: time.Millisecond,
		}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hw.CurrentDirection(), test.ShouldEqual, Forward)
		test.That(t, hw.Speed(), test.ShouldEqual, 0.0)
		test.That(t, hw.SteerAngle(), test.ShouldEqual, 0.0)
	})

	t.Run("missing backend", func(t *testing.T) {
		_, err := NewHardware(ctx, HardwareConfig{}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("init sequence", func(t *testing.T) {
		_, steer, drive := testHardware(t, HardwareConfig{})
		test.That(t, steer.Ops(), test.ShouldResemble, []string{"ready"})
		test.That(t, drive.Ops(), test.ShouldResemble, []string{"ready", "forward"})
	})
}

func TestTurnWheelsOffset(t *testing.T) {
	ctx := context.Background()
	hw, steer, _ := testHardware(t, HardwareConfig{StraightOffsetDeg: 3})

	test.That(t, hw.TurnWheels(ctx, 10), test.ShouldBeNil)
	// the backend sees the calibrated angle, callers see the requested one
	test.That(t, steer.Angle(), test.ShouldEqual, 13.0)
	test.That(t, hw.SteerAngle(), test.ShouldEqual, 10.0)
}

func TestTurnWheelsClamp(t *testing.T) {
	ctx := context.Background()
	hw, steer, _ := testHardware(t, HardwareConfig{MaxTurnDeg: 25})

	test.That(t, hw.TurnWheels(ctx, 60), test.ShouldBeNil)
	test.That(t, steer.Angle(), test.ShouldEqual, 25.0)
}

func TestTurnWheelsStraight(t *testing.T) {
	ctx := context.Background()
	hw, steer, _ := testHardware(t, HardwareConfig{})

	homing := []string{"turn 10.0", "turn -10.0", "straight"}

	test.That(t, hw.TurnWheels(ctx, 20), test.ShouldBeNil)
	before := len(steer.Ops())
	test.That(t, hw.TurnWheelsStraight(ctx), test.ShouldBeNil)
	test.That(t, steer.Ops()[before:], test.ShouldResemble, homing)
	test.That(t, hw.SteerAngle(), test.ShouldEqual, 0.0)
	test.That(t, steer.Angle(), test.ShouldEqual, 0.0)

	// homing from center issues the same sequence and lands in the same state
	before = len(steer.Ops())
	test.That(t, hw.TurnWheelsStraight(ctx), test.ShouldBeNil)
	test.That(t, steer.Ops()[before:], test.ShouldResemble, homing)
	test.That(t, hw.SteerAngle(), test.ShouldEqual, 0.0)
}

func TestStopMotors(t *testing.T) {
	ctx := context.Background()
	hw, steer, drive := testHardware(t, HardwareConfig{})

	test.That(t, hw.ApplyControls(ctx, 40, 15, Forward), test.ShouldBeNil)
	steerOps := len(steer.Ops())

	test.That(t, hw.StopMotors(ctx), test.ShouldBeNil)
	test.That(t, hw.Speed(), test.ShouldEqual, 0.0)
	// stop goes straight to the drive; steering and direction are untouched
	test.That(t, len(steer.Ops()), test.ShouldEqual, steerOps)
	test.That(t, hw.SteerAngle(), test.ShouldEqual, 15.0)
	test.That(t, hw.CurrentDirection(), test.ShouldEqual, Forward)
	test.That(t, drive.Ops()[len(drive.Ops())-1], test.ShouldEqual, "stop")
}

func TestApplyControls(t *testing.T) {
	ctx := context.Background()

	t.Run("forward", func(t *testing.T) {
		hw, _, drive := testHardware(t, HardwareConfig{})
		before := len(drive.Ops())
		test.That(t, hw.ApplyControls(ctx, 33.9, 12, Forward), test.ShouldBeNil)
		// speed is truncated to whole device units, direction before speed
		test.That(t, drive.Ops()[before:], test.ShouldResemble, []string{"forward", "speed 33"})
		test.That(t, hw.Speed(), test.ShouldEqual, 33.0)
		test.That(t, hw.SteerAngle(), test.ShouldEqual, 12.0)
	})

	t.Run("backward mirrors steering", func(t *testing.T) {
		hw, _, drive := testHardware(t, HardwareConfig{})
		test.That(t, hw.ApplyControls(ctx, 20, 12, Backward), test.ShouldBeNil)
		test.That(t, hw.CurrentDirection(), test.ShouldEqual, Backward)
		test.That(t, hw.SteerAngle(), test.ShouldEqual, -12.0)
		test.That(t, drive.CurrentDirection(), test.ShouldEqual, Backward)
	})

	t.Run("hold keeps direction", func(t *testing.T) {
		hw, _, drive := testHardware(t, HardwareConfig{})
		test.That(t, hw.ApplyControls(ctx, 20, 5, Backward), test.ShouldBeNil)
		before := len(drive.Ops())
		test.That(t, hw.ApplyControls(ctx, 25, 5, Hold), test.ShouldBeNil)
		test.That(t, hw.CurrentDirection(), test.ShouldEqual, Backward)
		test.That(t, drive.Ops()[before:], test.ShouldResemble, []string{"speed 25"})
		// hold also zeroes the steering mirror, so the angle goes through homing
		test.That(t, hw.SteerAngle(), test.ShouldEqual, 0.0)
	})

	t.Run("zero speed halts", func(t *testing.T) {
		hw, _, drive := testHardware(t, HardwareConfig{})
		before := len(drive.Ops())
		test.That(t, hw.ApplyControls(ctx, 0, 8, Forward), test.ShouldBeNil)
		test.That(t, drive.Ops()[before:], test.ShouldResemble, []string{"forward", "stop"})
		test.That(t, hw.Speed(), test.ShouldEqual, 0.0)
	})

	t.Run("fractional speed halts", func(t *testing.T) {
		hw, _, drive := testHardware(t, HardwareConfig{})
		before := len(drive.Ops())
		test.That(t, hw.ApplyControls(ctx, 0.9, 8, Forward), test.ShouldBeNil)
		test.That(t, drive.Ops()[before:], test.ShouldResemble, []string{"forward", "stop"})
	})

	t.Run("invalid direction halts with error", func(t *testing.T) {
		hw, steer, drive := testHardware(t, HardwareConfig{})
		test.That(t, hw.ApplyControls(ctx, 40, 10, Forward), test.ShouldBeNil)
		driveBefore := len(drive.Ops())
		steerBefore := len(steer.Ops())

		err := hw.ApplyControls(ctx, 40, 10, Direction(7))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "invalid drive direction")
		// the tick halts the drive and touches nothing else
		test.That(t, drive.Ops()[driveBefore:], test.ShouldResemble, []string{"stop"})
		test.That(t, len(steer.Ops()), test.ShouldEqual, steerBefore)
		test.That(t, hw.Speed(), test.ShouldEqual, 0.0)

		// the dispatcher stays usable on the next tick
		test.That(t, hw.ApplyControls(ctx, 30, 5, Forward), test.ShouldBeNil)
		test.That(t, hw.Speed(), test.ShouldEqual, 30.0)
	})

	t.Run("zero steer homes", func(t *testing.T) {
		hw, steer, _ := testHardware(t, HardwareConfig{})
		test.That(t, hw.ApplyControls(ctx, 20, 18, Forward), test.ShouldBeNil)
		before := len(steer.Ops())
		test.That(t, hw.ApplyControls(ctx, 20, 0, Forward), test.ShouldBeNil)
		test.That(t, steer.Ops()[before:], test.ShouldResemble,
			[]string{"turn 10.0", "turn -10.0", "straight"})
		test.That(t, hw.SteerAngle(), test.ShouldEqual, 0.0)
	})
}
