package picar

import (
	"context"
	"math"
	"sync"

	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/components/servo"
)

const (
	// servoCenterDeg is the servo position commanded for straight wheels
	// before any calibration offset.
	servoCenterDeg = 90.0
	servoMinDeg    = 0.0
	servoMaxDeg    = 180.0

	// defaultMaxDriveSpeed is the device speed that maps to full motor power.
	defaultMaxDriveSpeed = 100.0
)

// servoSteering drives the front wheels through a servo component. Steer
// angles are degrees off the servo's center position.
type servoSteering struct {
	mu      sync.Mutex
	servo   servo.Servo
	maxTurn float64
}

func newServoSteering(s servo.Servo) *servoSteering {
	return &servoSteering{servo: s}
}

func (s *servoSteering) Turn(ctx context.Context, angleDeg float64) error {
	s.mu.Lock()
	maxTurn := s.maxTurn
	s.mu.Unlock()

	if maxTurn > 0 {
		if angleDeg > maxTurn {
			angleDeg = maxTurn
		} else if angleDeg < -maxTurn {
			angleDeg = -maxTurn
		}
	}
	pos := servoCenterDeg + angleDeg
	if pos < servoMinDeg {
		pos = servoMinDeg
	} else if pos > servoMaxDeg {
		pos = servoMaxDeg
	}
	return s.servo.Move(ctx, uint32(math.Round(pos)), nil)
}

func (s *servoSteering) TurnStraight(ctx context.Context) error {
	return s.servo.Move(ctx, uint32(servoCenterDeg), nil)
}

func (s *servoSteering) SetMaxTurn(angleDeg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTurn = angleDeg
}

func (s *servoSteering) Ready(ctx context.Context) error {
	return s.TurnStraight(ctx)
}

// motorDrive runs the rear axle through a motor component. The backend keeps
// the last commanded speed so a direction change while moving reapplies the
// correctly signed power.
type motorDrive struct {
	mu       sync.Mutex
	motor    motor.Motor
	dir      float64 // +1 forward, -1 backward
	speed    float64 // unsigned device units
	maxSpeed float64 // device speed mapping to full power
}

func newMotorDrive(m motor.Motor) *motorDrive {
	return &motorDrive{motor: m, dir: 1, maxSpeed: defaultMaxDriveSpeed}
}

func (d *motorDrive) powerPct() float64 {
	pct := d.dir * d.speed / d.maxSpeed
	if pct > 1 {
		pct = 1
	} else if pct < -1 {
		pct = -1
	}
	return pct
}

func (d *motorDrive) setDirection(ctx context.Context, dir float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dir = dir
	if d.speed == 0 {
		return nil
	}
	return d.motor.SetPower(ctx, d.powerPct(), nil)
}

func (d *motorDrive) Forward(ctx context.Context) error {
	return d.setDirection(ctx, 1)
}

func (d *motorDrive) Backward(ctx context.Context) error {
	return d.setDirection(ctx, -1)
}

func (d *motorDrive) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.speed = 0
	d.mu.Unlock()
	return d.motor.Stop(ctx, nil)
}

func (d *motorDrive) SetSpeed(ctx context.Context, speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = math.Abs(speed)
	return d.motor.SetPower(ctx, d.powerPct(), nil)
}

func (d *motorDrive) Ready(ctx context.Context) error {
	return d.Stop(ctx)
}
