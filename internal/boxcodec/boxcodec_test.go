package boxcodec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

// wrapAngle maps a into (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func angleDiff(a, b float64) float64 {
	return math.Abs(wrapAngle(a - b))
}

func TestLabelToCanonical(t *testing.T) {
	pos := r3.Vec{X: 1.5, Y: -2.25, Z: 0.75}
	size := Size{Width: 1.8, Depth: 4.2, Height: 1.6}

	for _, yaw := range []float64{0, 0.3, -1.2, math.Pi, -math.Pi / 2, 7.5} {
		b := LabelToCanonical(pos, size, yaw)

		assert.Equal(t, pos, b.Center())
		assert.Equal(t, r3.Vec{X: 1.8, Y: 4.2, Z: 1.6}, b.Dims(), "dims keep (width, depth, height) order")
		assert.InDelta(t, -yaw-math.Pi/2, b[6], tol)
		assert.InDelta(t, yaw, LabelYaw(b.Heading()), tol)
	}
}

func TestRawLabelBox_ToCanonical(t *testing.T) {
	raw := RawLabelBox{
		Position: r3.Vec{X: 10, Y: 20, Z: 1},
		Size:     Size{Width: 2, Depth: 5, Height: 1.5},
		Yaw:      0.5,
		Class:    "car",
	}
	assert.Equal(t, LabelToCanonical(raw.Position, raw.Size, raw.Yaw), raw.ToCanonical())
}

func TestVerticalQuaternion_IsUnitAndRotatesAboutZ(t *testing.T) {
	for _, angle := range []float64{0, 0.25, math.Pi / 2, -2.0, math.Pi} {
		q := VerticalQuaternion(angle)
		assert.InDelta(t, 1.0, quat.Abs(q), tol)
		assert.Zero(t, q.Imag)
		assert.Zero(t, q.Jmag)

		rotated := r3.Rotation(q).Rotate(r3.Vec{X: 1})
		assert.InDelta(t, math.Cos(angle), rotated.X, tol)
		assert.InDelta(t, math.Sin(angle), rotated.Y, tol)
		assert.InDelta(t, 0, rotated.Z, tol)
	}
}

func TestCanonicalToEvaluatorBox(t *testing.T) {
	center := r3.Vec{X: 3, Y: 4, Z: -1}
	size := r3.Vec{X: 1.9, Y: 4.5, Z: 1.7}

	b := CanonicalToEvaluatorBox(center, size, 0.4, 2, 0.87, []float64{1.5, -0.5})

	assert.Equal(t, center, b.Center)
	assert.Equal(t, size, b.WLH)
	assert.Equal(t, 2, b.Label)
	assert.Equal(t, 0.87, b.Score)
	assert.Equal(t, [3]float64{1.5, -0.5, 0}, b.Velocity)
	assert.InDelta(t, 0, angleDiff(QuaternionYaw(b.Orientation), -0.4-math.Pi/2), tol)
}

// A canonical heading survives evaluator encoding, quaternion decoding and
// the inverse label transform.
func TestHeadingRoundTrip(t *testing.T) {
	for theta := -3 * math.Pi; theta <= 3*math.Pi; theta += 0.137 {
		b := CanonicalToEvaluatorBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, theta, 0, 1, nil)
		recovered := LabelYaw(QuaternionYaw(b.Orientation))
		assert.InDeltaf(t, 0, angleDiff(recovered, theta), tol, "theta=%v recovered=%v", theta, recovered)
	}
}

// Label yaw reaches the evaluator unchanged, since the two transforms are inverses.
func TestLabelYawReachesEvaluator(t *testing.T) {
	for _, yaw := range []float64{-2.5, -0.1, 0, 1.0, 3.0} {
		c := LabelToCanonical(r3.Vec{}, Size{Width: 1, Depth: 2, Height: 3}, yaw)
		e := CanonicalToEvaluatorBox(c.Center(), c.Dims(), c.Heading(), 0, 1, nil)
		assert.InDelta(t, 0, angleDiff(QuaternionYaw(e.Orientation), yaw), tol)
	}
}

func TestTruncateVelocity(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want [3]float64
	}{
		{"two components", []float64{1, 2}, [3]float64{1, 2, 0}},
		{"three components", []float64{1, 2, 3}, [3]float64{1, 2, 0}},
		{"five components", []float64{1, 2, 3, 4, 5}, [3]float64{1, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateVelocity(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 3)
		})
	}

	t.Run("missing components", func(t *testing.T) {
		for _, in := range [][]float64{nil, {}, {4}} {
			got := TruncateVelocity(in)
			assert.Equal(t, 0.0, got[2])
			assert.True(t, math.IsNaN(got[1]))
		}
		assert.Equal(t, 4.0, TruncateVelocity([]float64{4})[0])
	})
}

func TestFromDetectorRow(t *testing.T) {
	b, err := FromDetectorRow([]float64{1, 2, 3, 4, 5, 6, 0.1}, 1, 0.5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(b.Velocity[0]))
	assert.Equal(t, 0.0, b.Velocity[2])

	b, err = FromDetectorRow([]float64{1, 2, 3, 4, 5, 6, 0.1, 7, 8}, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{7, 8, 0}, b.Velocity)
	assert.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, b.WLH)

	b, err = FromDetectorRow([]float64{1, 2, 3, 4, 5, 6, 0.1, 7}, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 7.0, b.Velocity[0])
	assert.True(t, math.IsNaN(b.Velocity[1]))
	assert.Equal(t, 0.0, b.Velocity[2])

	b, err = FromDetectorRow([]float64{1, 2, 3, 4, 5, 6, 0.1, 7, 8, 9}, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{7, 8, 0}, b.Velocity)
	assert.InDelta(t, EvaluatorHeading(0.1), QuaternionYaw(b.Orientation), tol)

	_, err = FromDetectorRow([]float64{1, 2, 3}, 0, 0)
	assert.Error(t, err)
}

func TestQuaternionElementsOrder(t *testing.T) {
	q := quat.Number{Real: 1, Imag: 2, Jmag: 3, Kmag: 4}
	assert.Equal(t, [4]float64{1, 2, 3, 4}, QuaternionElements(q))
}

func TestAngleWrapping(t *testing.T) {
	assert.InDelta(t, math.Pi, wrapAngle(math.Pi), tol)
	assert.InDelta(t, math.Pi, wrapAngle(-math.Pi), tol)
	assert.InDelta(t, 0, wrapAngle(2*math.Pi), tol)
	assert.InDelta(t, math.Pi-0.5, wrapAngle(-0.5-math.Pi), tol)
}
