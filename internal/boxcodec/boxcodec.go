// Package boxcodec converts 3D boxes between the three frames the dataset
// tooling touches: raw label files, the canonical training representation,
// and the external evaluator's submission schema.
//
// All heading sign and offset knowledge lives here. Label yaw and canonical
// heading are related by rz = -yaw - π/2; canonical heading and evaluator
// heading by h = -rz - π/2. The second transform is the inverse of the first,
// so a label yaw round-trips to the evaluator unchanged (modulo 2π).
package boxcodec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// CanonicalBoxDim is the number of components in a canonical box.
const CanonicalBoxDim = 7

// CanonicalBox is the training-time box [x, y, z, dx, dy, dz, rz].
// dx, dy, dz hold the label's width, depth and height positionally;
// dx is not necessarily the physical length of the object.
type CanonicalBox [CanonicalBoxDim]float64

// Center returns the box location.
func (b CanonicalBox) Center() r3.Vec { return r3.Vec{X: b[0], Y: b[1], Z: b[2]} }

// Dims returns the box extents in stored order.
func (b CanonicalBox) Dims() r3.Vec { return r3.Vec{X: b[3], Y: b[4], Z: b[5]} }

// Heading returns the canonical rotation component.
func (b CanonicalBox) Heading() float64 { return b[6] }

// Size is the raw label extent triple.
type Size struct {
	Width  float64
	Depth  float64
	Height float64
}

// Vec returns the size as (width, depth, height).
func (s Size) Vec() r3.Vec { return r3.Vec{X: s.Width, Y: s.Depth, Z: s.Height} }

// RawLabelBox is one annotated object as read from a label file.
type RawLabelBox struct {
	Position r3.Vec
	Size     Size
	Yaw      float64
	Class    string
}

// CanonicalHeading converts a label yaw into the canonical heading.
func CanonicalHeading(yaw float64) float64 {
	return -yaw - math.Pi/2
}

// LabelYaw inverts CanonicalHeading.
func LabelYaw(rz float64) float64 {
	return -rz - math.Pi/2
}

// EvaluatorHeading converts a canonical heading into the evaluator's heading.
func EvaluatorHeading(heading float64) float64 {
	return -heading - math.Pi/2
}

// LabelToCanonical builds the canonical box for a labelled object.
func LabelToCanonical(position r3.Vec, size Size, yaw float64) CanonicalBox {
	return CanonicalBox{
		position.X, position.Y, position.Z,
		size.Width, size.Depth, size.Height,
		CanonicalHeading(yaw),
	}
}

// ToCanonical is LabelToCanonical applied to a parsed label box.
func (b RawLabelBox) ToCanonical() CanonicalBox {
	return LabelToCanonical(b.Position, b.Size, b.Yaw)
}

// EvaluatorBox is a detection in the external evaluator's convention.
type EvaluatorBox struct {
	Center      r3.Vec
	WLH         r3.Vec
	Orientation quat.Number
	// Velocity is (vx, vy, 0); the vertical component is always zero.
	Velocity [3]float64
	Label    int
	Score    float64
}

// CanonicalToEvaluatorBox converts one detector output box. Center and size
// are copied verbatim; velocity is truncated to its horizontal components.
// A nil velocity yields NaN horizontal components.
func CanonicalToEvaluatorBox(center, size r3.Vec, heading float64, label int, score float64, velocity []float64) EvaluatorBox {
	return EvaluatorBox{
		Center:      center,
		WLH:         size,
		Orientation: VerticalQuaternion(EvaluatorHeading(heading)),
		Velocity:    TruncateVelocity(velocity),
		Label:       label,
		Score:       score,
	}
}

// FromDetectorRow converts a detector output row [x, y, z, dx, dy, dz, rz,
// ...]. Any columns past the seventh are velocity; only the first two of
// them are kept.
func FromDetectorRow(row []float64, label int, score float64) (EvaluatorBox, error) {
	if len(row) < CanonicalBoxDim {
		return EvaluatorBox{}, fmt.Errorf("detector box has %d columns, want at least %d", len(row), CanonicalBoxDim)
	}
	velocity := row[CanonicalBoxDim:]
	center := r3.Vec{X: row[0], Y: row[1], Z: row[2]}
	size := r3.Vec{X: row[3], Y: row[4], Z: row[5]}
	return CanonicalToEvaluatorBox(center, size, row[6], label, score, velocity), nil
}

// TruncateVelocity keeps the first two components of v and appends a zero
// vertical component. Missing horizontal components are NaN.
func TruncateVelocity(v []float64) [3]float64 {
	out := [3]float64{math.NaN(), math.NaN(), 0}
	for i := 0; i < 2 && i < len(v); i++ {
		out[i] = v[i]
	}
	return out
}

// VerticalQuaternion returns the unit quaternion rotating by angle radians
// about the +Z axis.
func VerticalQuaternion(angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Kmag: s}
}

// QuaternionYaw extracts the rotation about +Z from a unit quaternion.
func QuaternionYaw(q quat.Number) float64 {
	siny := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosy := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(siny, cosy)
}

// QuaternionElements returns q in (w, x, y, z) order.
func QuaternionElements(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}
