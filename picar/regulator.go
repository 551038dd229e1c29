// Package picar implements the motion-control core of a small front-steered
// rover: a polar-coordinate pose regulator, a hardware dispatcher with
// steering calibration and backlash homing, and real/virtual actuator
// backends, exposed as a viam base component.
package picar

import (
	"math"

	"go.viam.com/rdk/control"

	"github.com/viam-labs/picar/pid"
)

// Direction is the signed drive direction of the rear axle.
type Direction int

// Drive direction values. Hold leaves the current direction untouched.
const (
	Backward Direction = -1
	Hold     Direction = 0
	Forward  Direction = 1
)

// PoseError is the polar-form relative pose regulation error supplied each
// control tick by an external estimator: range to goal, bearing error to
// goal, and the residual heading error to the target orientation.
type PoseError struct {
	Rho   float64 // meters, >= 0
	Alpha float64 // radians, (-pi, pi]
	Beta  float64 // radians, (-pi, pi]
}

// Command is one tick's actuator command as produced by the regulator.
type Command struct {
	Speed    float64 // signed magnitude; direction is resolved separately
	SteerRad float64 // front-wheel steer angle, [-pi, pi]
	Dir      Direction
}

// Axis labels accepted in a config's control_parameters list.
const (
	axisRho   = "rho"
	axisAlpha = "alpha"
	axisBeta  = "beta"
)

// reverseTol keeps the direction decision from oscillating when alpha sits
// exactly on the right-angle boundary.
const reverseTol = 1e-4

// RegulatorConfig configures the three pose loops. A pre-built loop takes
// precedence over the matching gain triple; when neither is given the
// regulator defaults to proportional-only range control (rho Kp=1, all other
// gains zero). An all-zero RhoGains triple is indistinguishable from "not
// set" and gets the default; a caller who genuinely wants a dead rho loop
// injects pid.New(0, 0, 0) through Rho.
type RegulatorConfig struct {
	Rho   *pid.PID
	Alpha *pid.PID
	Beta  *pid.PID

	RhoGains   control.PIDConfig
	AlphaGains control.PIDConfig
	BetaGains  control.PIDConfig
}

// Regulator converts pose error into speed, steer and direction commands,
// one PID loop per polar axis. It holds no state beyond the three loops.
type Regulator struct {
	rho   *pid.PID
	alpha *pid.PID
	beta  *pid.PID
}

// NewRegulator builds a regulator from the given config.
func NewRegulator(cfg RegulatorConfig) *Regulator {
	rho := cfg.Rho
	if rho == nil {
		g := cfg.RhoGains
		if g.P == 0 && g.I == 0 && g.D == 0 {
			g.P = 1
		}
		rho = pid.New(g.P, g.I, g.D)
	}
	alpha := cfg.Alpha
	if alpha == nil {
		alpha = pid.New(cfg.AlphaGains.P, cfg.AlphaGains.I, cfg.AlphaGains.D)
	}
	beta := cfg.Beta
	if beta == nil {
		beta = pid.New(cfg.BetaGains.P, cfg.BetaGains.I, cfg.BetaGains.D)
	}
	return &Regulator{rho: rho, alpha: alpha, beta: beta}
}

// regulatorFromControlParameters maps a control_parameters list onto a
// regulator, matching entries to axes by their type label.
func regulatorFromControlParameters(params []control.PIDConfig) *Regulator {
	var cfg RegulatorConfig
	for _, p := range params {
		switch p.Type {
		case axisRho:
			cfg.RhoGains = p
		case axisAlpha:
			cfg.AlphaGains = p
		case axisBeta:
			cfg.BetaGains = p
		}
	}
	return NewRegulator(cfg)
}

// Speed returns the commanded speed for the given range error, the raw rho
// loop output. Magnitude and sign policy live entirely in the gains; no
// clamping happens here.
func (r *Regulator) Speed(rho, dt float64) float64 {
	return r.rho.Input(rho, dt)
}

// Steer returns the front-wheel steer angle in radians for the given heading
// errors, assuming bicycle kinematics with the steer angle measured at the
// front axle. Only the magnitude of speed enters the formula; direction must
// never reach it as a sign. Zero speed makes the kinematics degenerate, so
// the wheels are held straight instead of dividing by zero.
func (r *Regulator) Steer(speed, alpha, beta, wheelbase, dt float64) float64 {
	a := r.alpha.Input(alpha, dt)
	b := r.beta.Input(beta, dt)
	dh := a + b // combined desired heading rate

	s := math.Abs(speed)
	if s == 0 {
		return 0
	}
	return wrapPi(math.Atan(dh * wheelbase / s))
}

// ReverseDirection reports whether backing up reaches the target orientation
// with less net rotation than driving forward: true when the bearing error
// exceeds a right angle. dt is accepted for symmetry with Speed and Steer and
// does not affect the decision; no loop state is read or written.
func (r *Regulator) ReverseDirection(alpha, dt float64) bool {
	return math.Abs(alpha) > math.Pi/2+reverseTol
}

// Compute runs one full tick: speed from the range error, direction from the
// bearing error, then steer using the speed just computed. It never emits
// Hold; that value exists for callers that want to preserve the current
// drive direction.
func (r *Regulator) Compute(perr PoseError, wheelbase, dt float64) Command {
	speed := r.Speed(perr.Rho, dt)
	dir := Forward
	if r.ReverseDirection(perr.Alpha, dt) {
		dir = Backward
	}
	steer := r.Steer(speed, perr.Alpha, perr.Beta, wheelbase, dt)
	return Command{Speed: speed, SteerRad: steer, Dir: dir}
}

// wrapPi normalizes an angle to (-pi, pi] by shortest-angle wrapping.
func wrapPi(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
