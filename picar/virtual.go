package picar

import (
	"context"
	"fmt"
	"sync"

	"go.viam.com/rdk/logging"
)

// VirtualSteering is a software stand-in for the steering linkage. It keeps
// the commanded angle and records every backend call in order so tests can
// assert exact dispatch sequences.
type VirtualSteering struct {
	mu      sync.Mutex
	logger  logging.Logger
	verbose bool
	maxTurn float64
	angle   float64
	ops     []string
}

// NewVirtualSteering returns a virtual steering backend.
func NewVirtualSteering(logger logging.Logger, verbose bool) *VirtualSteering {
	return &VirtualSteering{logger: logger, verbose: verbose}
}

func (s *VirtualSteering) record(ctx context.Context, op string) {
	s.ops = append(s.ops, op)
	if s.verbose {
		s.logger.CDebugf(ctx, "virtual steering: %s", op)
	}
}

// Turn moves the virtual wheels, honoring the max-turn clamp.
func (s *VirtualSteering) Turn(ctx context.Context, angleDeg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxTurn > 0 {
		if angleDeg > s.maxTurn {
			angleDeg = s.maxTurn
		} else if angleDeg < -s.maxTurn {
			angleDeg = -s.maxTurn
		}
	}
	s.angle = angleDeg
	s.record(ctx, fmt.Sprintf("turn %.1f", angleDeg))
	return nil
}

// TurnStraight moves the virtual wheels to the dedicated straight position.
func (s *VirtualSteering) TurnStraight(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle = 0
	s.record(ctx, "straight")
	return nil
}

// SetMaxTurn sets the clamp applied to Turn.
func (s *VirtualSteering) SetMaxTurn(angleDeg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTurn = angleDeg
}

// Ready marks the subsystem initialized.
func (s *VirtualSteering) Ready(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(ctx, "ready")
	return nil
}

// Angle returns the current virtual wheel angle.
func (s *VirtualSteering) Angle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Ops returns a copy of the recorded call sequence.
func (s *VirtualSteering) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ops))
	copy(out, s.ops)
	return out
}

// VirtualDrive is a software stand-in for the rear-axle motor driver.
type VirtualDrive struct {
	mu      sync.Mutex
	logger  logging.Logger
	verbose bool
	dir     Direction
	speed   float64
	ops     []string
}

// NewVirtualDrive returns a virtual drive backend.
func NewVirtualDrive(logger logging.Logger, verbose bool) *VirtualDrive {
	return &VirtualDrive{logger: logger, verbose: verbose}
}

func (d *VirtualDrive) record(ctx context.Context, op string) {
	d.ops = append(d.ops, op)
	if d.verbose {
		d.logger.CDebugf(ctx, "virtual drive: %s", op)
	}
}

// Forward sets the virtual drive direction forward.
func (d *VirtualDrive) Forward(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dir = Forward
	d.record(ctx, "forward")
	return nil
}

// Backward sets the virtual drive direction backward.
func (d *VirtualDrive) Backward(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dir = Backward
	d.record(ctx, "backward")
	return nil
}

// Stop cuts virtual drive output, leaving direction as is.
func (d *VirtualDrive) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = 0
	d.record(ctx, "stop")
	return nil
}

// SetSpeed sets the unsigned virtual speed.
func (d *VirtualDrive) SetSpeed(ctx context.Context, speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = speed
	d.record(ctx, fmt.Sprintf("speed %g", speed))
	return nil
}

// Ready marks the subsystem initialized.
func (d *VirtualDrive) Ready(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(ctx, "ready")
	return nil
}

// Speed returns the current virtual speed.
func (d *VirtualDrive) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// CurrentDirection returns the current virtual drive direction.
func (d *VirtualDrive) CurrentDirection() Direction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

// Ops returns a copy of the recorded call sequence.
func (d *VirtualDrive) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.ops))
	copy(out, d.ops)
	return out
}
