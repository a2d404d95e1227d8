package infos

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/udi-dataset/internal/fsutil"
)

// NumPointFeatures is the number of float32 channels per LiDAR point:
// x, y, z, intensity.
const NumPointFeatures = 4

const pointSize = NumPointFeatures * 4

// Point is one LiDAR return. Intensity is scaled from the raw 0-255 range
// to 0-1 on load.
type Point struct {
	X, Y, Z   float32
	Intensity float32
}

// DecodePoints decodes a little-endian float32×4 point blob.
func DecodePoints(blob []byte) ([]Point, error) {
	if len(blob)%pointSize != 0 {
		return nil, fmt.Errorf("point blob length %d is not a multiple of %d", len(blob), pointSize)
	}
	points := make([]Point, len(blob)/pointSize)
	for i := range points {
		off := i * pointSize
		f := func(k int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(blob[off+4*k:]))
		}
		points[i] = Point{X: f(0), Y: f(1), Z: f(2), Intensity: f(3) / 255}
	}
	return points, nil
}

// ReadPoints loads the point cloud of a frame.
func ReadPoints(fs fsutil.FileSystem, path string) ([]Point, error) {
	blob, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read points %s: %w", path, err)
	}
	points, err := DecodePoints(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
