package picar

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/components/servo"
	"go.viam.com/rdk/control"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/operation"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
	rdkutils "go.viam.com/rdk/utils"

	"github.com/viam-labs/picar/units"
)

// Model is the resource model of the picar base.
var Model = resource.NewModel("viam-labs", "base", "picar")

func init() {
	resource.RegisterComponent(base.API, Model,
		resource.Registration[base.Base, *Config]{Constructor: newPicarBase})
}

// Config configures a picar base. The component config doubles as the
// calibration store: the straight offset and max turn discovered during
// calibration live here.
type Config struct {
	// Virtual swaps the servo/motor backend for a software stand-in, so the
	// base runs without GPIO hardware present.
	Virtual        bool   `json:"virtual,omitempty"`
	VirtualVerbose bool   `json:"virtual_verbose,omitempty"`
	Steer          string `json:"steer,omitempty"` // steering servo name
	Motor          string `json:"motor,omitempty"` // drive motor name

	WheelbaseMm       float64 `json:"wheelbase_mm"`
	WidthMm           float64 `json:"width_mm,omitempty"`
	MaxTurnDeg        float64 `json:"max_turn_deg,omitempty"`          // default 40
	StraightOffsetDeg float64 `json:"straight_offset_deg,omitempty"`   // steering calibration
	OvershootDeg      float64 `json:"homing_overshoot_deg,omitempty"`  // default 10
	SettleDelayMs     int     `json:"homing_settle_ms,omitempty"`      // default 50

	// ControlParameters holds the pose-loop gains, matched to the rho,
	// alpha and beta axes by the entry's type.
	ControlParameters []control.PIDConfig `json:"control_parameters,omitempty"`

	// Units maps device command units to world units; identity when omitted.
	Units *units.Params `json:"units,omitempty"`
}

// Validate ensures all parts of the config are valid and returns the
// component's dependencies.
func (cfg *Config) Validate(path string) ([]string, error) {
	var deps []string
	if cfg.WheelbaseMm == 0 {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "wheelbase_mm")
	}
	if cfg.Virtual {
		return deps, nil
	}
	if cfg.Steer == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "steer")
	}
	if cfg.Motor == "" {
		return nil, resource.NewConfigValidationFieldRequiredError(path, "motor")
	}
	deps = append(deps, cfg.Steer, cfg.Motor)
	return deps, nil
}

type picarBase struct {
	resource.Named
	resource.AlwaysRebuild

	mu     sync.Mutex
	hw     *Hardware
	reg    *Regulator
	conv   *units.Converter
	logger logging.Logger
	opMgr  operation.SingleOperationManager

	wheelbaseMm float64
	widthMm     float64
	maxTurnDeg  float64
}

func newPicarBase(
	ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger,
) (base.Base, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	hwCfg := HardwareConfig{
		Virtual:           cfg.Virtual,
		VirtualVerbose:    cfg.VirtualVerbose,
		MaxTurnDeg:        cfg.MaxTurnDeg,
		StraightOffsetDeg: cfg.StraightOffsetDeg,
		OvershootDeg:      cfg.OvershootDeg,
		SettleDelay:       time.Duration(cfg.SettleDelayMs) * time.Millisecond,
	}
	if !cfg.Virtual {
		s, err := servo.FromDependencies(deps, cfg.Steer)
		if err != nil {
			return nil, errors.Wrapf(err, "no steering servo named (%s)", cfg.Steer)
		}
		m, err := motor.FromDependencies(deps, cfg.Motor)
		if err != nil {
			return nil, errors.Wrapf(err, "no drive motor named (%s)", cfg.Motor)
		}
		hwCfg.Steering = newServoSteering(s)
		hwCfg.Drive = newMotorDrive(m)
	}

	conv := units.Identity()
	if cfg.Units != nil {
		if conv, err = units.NewConverter(*cfg.Units); err != nil {
			return nil, err
		}
	}

	hw, err := NewHardware(ctx, hwCfg, logger)
	if err != nil {
		return nil, err
	}

	maxTurn := cfg.MaxTurnDeg
	if maxTurn == 0 {
		maxTurn = defaultMaxTurnDeg
	}

	return &picarBase{
		Named:       conf.ResourceName().AsNamed(),
		hw:          hw,
		reg:         regulatorFromControlParameters(cfg.ControlParameters),
		conv:        conv,
		logger:      logger,
		wheelbaseMm: cfg.WheelbaseMm,
		widthMm:     cfg.WidthMm,
		maxTurnDeg:  maxTurn,
	}, nil
}

// bicycleSteerRad returns the front-wheel steer angle that yields the given
// angular rate at the given ground speed under bicycle kinematics. Zero speed
// is degenerate and holds the wheels straight.
func bicycleSteerRad(wheelbaseM, mPerSec, radPerSec float64) float64 {
	s := math.Abs(mPerSec)
	if s == 0 {
		return 0
	}
	return math.Atan(radPerSec * wheelbaseM / s)
}

// MoveStraight drives forward or backward at the given speed for the given
// distance, homing the steering first.
func (b *picarBase) MoveStraight(
	ctx context.Context, distanceMm int, mmPerSec float64, extra map[string]interface{},
) error {
	ctx, done := b.opMgr.New(ctx)
	defer done()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.CDebugf(ctx, "MoveStraight distanceMm:%d mmPerSec:%.2f", distanceMm, mmPerSec)

	if distanceMm == 0 || math.Abs(mmPerSec) < 1e-4 {
		return b.hw.StopMotors(ctx)
	}

	dir := Forward
	if distanceMm < 0 != (mmPerSec < 0) {
		dir = Backward
	}
	devSpeed := b.conv.SpeedToDevice(math.Abs(mmPerSec) / 1000.0)

	if err := b.hw.ApplyControls(ctx, devSpeed, 0, dir); err != nil {
		return err
	}

	wait := time.Duration(float64(time.Second) * math.Abs(float64(distanceMm)) / math.Abs(mmPerSec))
	if !goutils.SelectContextOrWait(ctx, wait) {
		return multierr.Combine(ctx.Err(), b.hw.StopMotors(ctx))
	}
	return b.hw.StopMotors(ctx)
}

// Spin is unsupported: an ackermann base cannot turn about its own center.
func (b *picarBase) Spin(ctx context.Context, angleDeg, degsPerSec float64, extra map[string]interface{}) error {
	return errors.New("picar cannot spin in place")
}

// SetPower maps linear.Y in [-1, 1] to drive power and angular.Z in [-1, 1]
// to a fraction of the maximum turn angle.
func (b *picarBase) SetPower(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.opMgr.CancelRunning(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.CDebugf(ctx, "SetPower linear.Y:%.2f angular.Z:%.2f", linear.Y, angular.Z)

	dir := Forward
	if linear.Y < 0 {
		dir = Backward
	}
	speed := math.Abs(linear.Y) * defaultMaxDriveSpeed
	steerDeg := angular.Z * b.maxTurnDeg
	return b.hw.ApplyControls(ctx, speed, steerDeg, dir)
}

// SetVelocity maps linear.Y (mm/s) and angular.Z (deg/s) to a speed and a
// bicycle-model steer angle.
func (b *picarBase) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.opMgr.CancelRunning(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.CDebugf(ctx, "SetVelocity linear.Y:%.2f mmPerSec angular.Z:%.2f degsPerSec", linear.Y, angular.Z)

	dir := Forward
	if linear.Y < 0 {
		dir = Backward
	}
	mPerSec := linear.Y / 1000.0
	steerRad := bicycleSteerRad(b.wheelbaseMm/1000.0, mPerSec, rdkutils.DegToRad(angular.Z))
	steerDeg := b.conv.AngleToDevice(rdkutils.RadToDeg(steerRad))
	devSpeed := b.conv.SpeedToDevice(math.Abs(mPerSec))
	return b.hw.ApplyControls(ctx, devSpeed, steerDeg, dir)
}

// Stop halts the drive through the low-latency path; steering is untouched.
func (b *picarBase) Stop(ctx context.Context, extra map[string]interface{}) error {
	b.opMgr.CancelRunning(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hw.StopMotors(ctx)
}

func (b *picarBase) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hw.Speed() != 0, nil
}

// Properties reports the base geometry. The minimum turning radius follows
// from the wheelbase and the steering clamp.
func (b *picarBase) Properties(ctx context.Context, extra map[string]interface{}) (base.Properties, error) {
	turningRadiusM := 0.0
	if b.maxTurnDeg > 0 {
		turningRadiusM = (b.wheelbaseMm / 1000.0) / math.Tan(rdkutils.DegToRad(b.maxTurnDeg))
	}
	return base.Properties{
		TurningRadiusMeters: turningRadiusM,
		WidthMeters:         b.widthMm / 1000.0,
	}, nil
}

func (b *picarBase) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

// DoCommand exposes the pose-regulation tick and the steering homing
// sequence:
//
//	{"command": "pose_tick", "rho": r, "alpha": a, "beta": b, "dt": s}
//	{"command": "home_steering"}
//
// pose_tick runs one regulator pass over the supplied pose error and applies
// the resulting controls.
func (b *picarBase) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd["command"].(string)
	if !ok {
		return nil, errors.New("missing 'command' string")
	}
	switch name {
	case "pose_tick":
		perr := PoseError{}
		var dt float64
		for key, dst := range map[string]*float64{
			"rho": &perr.Rho, "alpha": &perr.Alpha, "beta": &perr.Beta, "dt": &dt,
		} {
			v, ok := cmd[key].(float64)
			if !ok {
				return nil, errors.Errorf("pose_tick needs numeric %q", key)
			}
			*dst = v
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		out := b.reg.Compute(perr, b.wheelbaseMm/1000.0, dt)
		devSpeed := b.conv.SpeedToDevice(out.Speed)
		steerDeg := b.conv.AngleToDevice(rdkutils.RadToDeg(out.SteerRad))
		if err := b.hw.ApplyControls(ctx, devSpeed, steerDeg, out.Dir); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"speed":     devSpeed,
			"steer_deg": steerDeg,
			"direction": float64(out.Dir),
		}, nil
	case "home_steering":
		b.mu.Lock()
		defer b.mu.Unlock()
		return nil, b.hw.TurnWheelsStraight(ctx)
	default:
		return nil, errors.Errorf("no such command: %s", name)
	}
}

// Close stops the base.
func (b *picarBase) Close(ctx context.Context) error {
	return b.Stop(ctx, nil)
}
