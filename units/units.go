// Package units converts between world units (m/s, degrees, seconds, meters)
// and the rover's device-native command units. All relationships are affine.
package units

import "github.com/pkg/errors"

// Params holds the affine maps, one (scale, offset) pair per quantity, with
// world = scale*device + offset. Time carries no offset: durations are deltas
// and must not shift under translation. Every scale is required: set the
// ones not being calibrated to 1, since a zero scale is rejected rather than
// defaulted.
type Params struct {
	SpeedScale  float64 `json:"speed_scale"`
	SpeedOffset float64 `json:"speed_offset,omitempty"`
	AngleScale  float64 `json:"angle_scale"`
	AngleOffset float64 `json:"angle_offset,omitempty"`
	TimeScale   float64 `json:"time_scale"`
}

// Converter maps quantities between world and device units. It is immutable
// after construction and safe to share.
type Converter struct {
	p Params
}

// NewConverter validates the parameter set and returns a converter. A zero
// scale would divide by zero on the device-direction path, so it is rejected
// here, before any conversion runs.
func NewConverter(p Params) (*Converter, error) {
	if p.SpeedScale == 0 {
		return nil, errors.New("speed scale cannot be zero")
	}
	if p.AngleScale == 0 {
		return nil, errors.New("angle scale cannot be zero")
	}
	if p.TimeScale == 0 {
		return nil, errors.New("time scale cannot be zero")
	}
	return &Converter{p: p}, nil
}

// Identity returns a converter that maps every quantity through unchanged.
func Identity() *Converter {
	return &Converter{p: Params{SpeedScale: 1, AngleScale: 1, TimeScale: 1}}
}

// SpeedToWorld converts a device speed to m/s.
func (c *Converter) SpeedToWorld(v float64) float64 {
	return c.p.SpeedScale*v + c.p.SpeedOffset
}

// SpeedToDevice converts a speed in m/s to device speed units.
func (c *Converter) SpeedToDevice(v float64) float64 {
	return (v - c.p.SpeedOffset) / c.p.SpeedScale
}

// AngleToWorld converts a device angle to degrees.
func (c *Converter) AngleToWorld(a float64) float64 {
	return c.p.AngleScale*a + c.p.AngleOffset
}

// AngleToDevice converts an angle in degrees to device angle units.
func (c *Converter) AngleToDevice(a float64) float64 {
	return (a - c.p.AngleOffset) / c.p.AngleScale
}

// TimeToWorld converts a device duration to seconds.
func (c *Converter) TimeToWorld(t float64) float64 {
	return c.p.TimeScale * t
}

// TimeToDevice converts a duration in seconds to device time units.
func (c *Converter) TimeToDevice(t float64) float64 {
	return t / c.p.TimeScale
}

// LengthToWorld converts a device length to meters. Device lengths are not
// calibrated independently: a device length is the distance covered per unit
// device time, so it runs through this converter's own speed map and is then
// scaled by its own time factor.
func (c *Converter) LengthToWorld(l float64) float64 {
	return c.SpeedToWorld(l) * c.p.TimeScale
}

// LengthToDevice converts a length in meters to device length units; the dual
// of LengthToWorld (undo the time scaling, then invert the speed map).
func (c *Converter) LengthToDevice(l float64) float64 {
	return c.SpeedToDevice(l / c.p.TimeScale)
}
