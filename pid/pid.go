// Package pid implements the discrete PID primitive the pose regulator runs
// one of per regulated axis.
package pid

// PID is a discrete proportional-integral-derivative loop with per-axis
// memory. The primitive is deliberately unclamped: there is no windup guard
// and no output saturation. Callers own the bounding policy (the regulator
// wraps angles, the dispatcher truncates speeds), so the loop never has to
// guess what units it is working in.
//
// A PID must not be shared between axes or regulator instances.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	integral  float64
	prevError float64
}

// New returns a loop with the given gains and zeroed state.
func New(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Input feeds one error sample and the elapsed time since the previous sample
// and returns the control correction. The integral accumulates before the
// derivative is taken against the previous error. A dt of zero contributes
// nothing to the integral or derivative terms rather than dividing by zero.
// Output depends only on gains and the (error, dt) history, never on the
// wall clock.
func (p *PID) Input(errVal, dt float64) float64 {
	p.integral += errVal * dt

	var deriv float64
	if dt != 0 {
		deriv = (errVal - p.prevError) / dt
	}

	out := p.Kp*errVal + p.Ki*p.integral + p.Kd*deriv
	p.prevError = errVal
	return out
}

// Reset zeroes the accumulated state, keeping the gains.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
}

// Integral returns the accumulated integral term, for diagnostics.
func (p *PID) Integral() float64 {
	return p.integral
}
