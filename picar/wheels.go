package picar

import "context"

// Steering points the front axle. Angles are degrees in backend units,
// relative to the backend's own zero, which is not guaranteed to be true
// mechanical center; the dispatcher owns the calibration offset that bridges
// the two. Real hardware and the virtual stand-in must behave identically
// through this interface.
type Steering interface {
	// Turn moves the front wheels to the given angle.
	Turn(ctx context.Context, angleDeg float64) error
	// TurnStraight commands the backend's dedicated straight position.
	TurnStraight(ctx context.Context) error
	// SetMaxTurn sets the clamp the backend enforces on Turn.
	SetMaxTurn(angleDeg float64)
	// Ready initializes the steering subsystem to a known state.
	Ready(ctx context.Context) error
}

// Drive runs the rear axle. Speed is an unsigned device-unit magnitude;
// direction is set separately through Forward and Backward.
type Drive interface {
	Forward(ctx context.Context) error
	Backward(ctx context.Context) error
	// Stop cuts drive output. It must stay the cheapest call on the
	// interface; the emergency-stop path is routed through it alone.
	Stop(ctx context.Context) error
	SetSpeed(ctx context.Context, speed float64) error
	// Ready initializes the drive subsystem to a known state.
	Ready(ctx context.Context) error
}
