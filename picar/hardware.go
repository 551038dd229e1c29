package picar

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rdk/logging"
)

const (
	defaultMaxTurnDeg   = 40.0
	defaultOvershootDeg = 10.0
	defaultSettleDelay  = 50 * time.Millisecond
)

// HardwareConfig configures the dispatcher and selects its backend. When
// Virtual is set, a virtual steering/drive pair is built internally and the
// Steering/Drive fields are ignored; otherwise both must be supplied.
type HardwareConfig struct {
	Virtual        bool
	VirtualVerbose bool
	Steering       Steering
	Drive          Drive

	// MaxTurnDeg is the steering clamp the backend enforces; defaults to 40.
	MaxTurnDeg float64
	// StraightOffsetDeg is the calibrated distance between the backend's zero
	// and true mechanical center, discovered externally.
	StraightOffsetDeg float64
	// OvershootDeg and SettleDelay shape the backlash homing sequence;
	// defaults 10 degrees and 50ms. Tests shrink SettleDelay.
	OvershootDeg float64
	SettleDelay  time.Duration
}

// Hardware dispatches control commands to a steering and drive backend,
// hiding whether the backend is real actuators or a software stand-in. It is
// the only writer of the steering/speed/direction state it tracks.
//
// Hardware is not safe for concurrent use: the control model is one
// synchronous tick at a time, with one owner per rover.
type Hardware struct {
	steer  Steering
	drive  Drive
	logger logging.Logger

	straightOffset float64
	overshoot      float64
	settleDelay    time.Duration

	steering  float64 // last commanded steer angle, degrees
	speed     float64 // last commanded unsigned speed, device units
	direction Direction
}

// NewHardware builds the dispatcher and brings the backend to a known state:
// max-turn clamp applied, both subsystems readied, drive direction forward.
// A backend that cannot be initialized fails construction outright; there is
// no retry.
func NewHardware(ctx context.Context, cfg HardwareConfig, logger logging.Logger) (*Hardware, error) {
	steer, drive := cfg.Steering, cfg.Drive
	if cfg.Virtual {
		steer = NewVirtualSteering(logger, cfg.VirtualVerbose)
		drive = NewVirtualDrive(logger, cfg.VirtualVerbose)
	}
	if steer == nil || drive == nil {
		return nil, errors.New("hardware needs both a steering and a drive backend")
	}

	maxTurn := cfg.MaxTurnDeg
	if maxTurn == 0 {
		maxTurn = defaultMaxTurnDeg
	}
	overshoot := cfg.OvershootDeg
	if overshoot == 0 {
		overshoot = defaultOvershootDeg
	}
	settle := cfg.SettleDelay
	if settle == 0 {
		settle = defaultSettleDelay
	}

	h := &Hardware{
		steer:          steer,
		drive:          drive,
		logger:         logger,
		straightOffset: cfg.StraightOffsetDeg,
		overshoot:      overshoot,
		settleDelay:    settle,
	}

	steer.SetMaxTurn(maxTurn)
	if err := steer.Ready(ctx); err != nil {
		return nil, errors.Wrap(err, "steering not ready")
	}
	if err := drive.Ready(ctx); err != nil {
		return nil, errors.Wrap(err, "drive not ready")
	}
	if err := drive.Forward(ctx); err != nil {
		return nil, errors.Wrap(err, "setting default drive direction")
	}
	h.direction = Forward
	return h, nil
}

// TurnWheels points the front wheels at steerDeg, measured from true
// mechanical center: the calibration offset is added before the angle
// reaches the backend.
func (h *Hardware) TurnWheels(ctx context.Context, steerDeg float64) error {
	if err := h.steer.Turn(ctx, steerDeg+h.straightOffset); err != nil {
		return err
	}
	h.steering = steerDeg
	return nil
}

// TurnWheelsStraight homes the steering. Slack in the linkage means
// commanding zero directly tends to stop short of center, so the sequence
// overshoots in both directions with a settle delay before committing to the
// backend's straight primitive. The two delays make this a blocking,
// calibration-adjacent call; it must never sit on a latency-critical path.
func (h *Hardware) TurnWheelsStraight(ctx context.Context) error {
	if err := h.TurnWheels(ctx, h.overshoot); err != nil {
		return err
	}
	if !goutils.SelectContextOrWait(ctx, h.settleDelay) {
		return ctx.Err()
	}
	if err := h.TurnWheels(ctx, -h.overshoot); err != nil {
		return err
	}
	if !goutils.SelectContextOrWait(ctx, h.settleDelay) {
		return ctx.Err()
	}
	if err := h.steer.TurnStraight(ctx); err != nil {
		return err
	}
	h.steering = 0
	return nil
}

// StopMotors is the lowest-latency halt: it calls only the drive backend's
// stop and leaves steering and direction state untouched.
func (h *Hardware) StopMotors(ctx context.Context) error {
	if err := h.drive.Stop(ctx); err != nil {
		return err
	}
	h.speed = 0
	return nil
}

// ApplyControls is the composite per-tick entry point. Backward motion
// mirrors the steering intent, since a given wheel angle swings the rear the
// opposite way in reverse. Hold leaves the current drive direction unchanged;
// any direction outside {-1, 0, 1} halts the drive for this tick and returns
// a diagnostic, leaving the dispatcher usable on the next tick. Direction is
// always dispatched before speed.
func (h *Hardware) ApplyControls(ctx context.Context, speed, steerDeg float64, dir Direction) error {
	signedSteer := float64(dir) * steerDeg
	unsignedSpeed := math.Trunc(math.Abs(speed))

	switch dir {
	case Forward:
		if err := h.drive.Forward(ctx); err != nil {
			return err
		}
		h.direction = Forward
	case Backward:
		if err := h.drive.Backward(ctx); err != nil {
			return err
		}
		h.direction = Backward
	case Hold:
		// keep whatever direction the drive is in
	default:
		err := errors.Errorf("invalid drive direction %d, halting", dir)
		h.logger.CWarn(ctx, err)
		return multierr.Combine(err, h.StopMotors(ctx))
	}

	if signedSteer == 0 {
		if err := h.TurnWheelsStraight(ctx); err != nil {
			return err
		}
	} else if err := h.TurnWheels(ctx, signedSteer); err != nil {
		return err
	}

	if unsignedSpeed == 0 {
		return h.StopMotors(ctx)
	}
	if err := h.drive.SetSpeed(ctx, unsignedSpeed); err != nil {
		return err
	}
	h.speed = unsignedSpeed
	return nil
}

// SteerAngle returns the last commanded steer angle in degrees.
func (h *Hardware) SteerAngle() float64 {
	return h.steering
}

// Speed returns the last commanded unsigned speed in device units.
func (h *Hardware) Speed() float64 {
	return h.speed
}

// CurrentDirection returns the drive direction the dispatcher last set.
func (h *Hardware) CurrentDirection() Direction {
	return h.direction
}
