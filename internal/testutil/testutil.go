// Package testutil provides shared test helpers and capture fixtures.
//
// Capture fixtures follow the on-disk layout the dataset builder reads:
// lidar/<token>.bin, label/<token>_bin.json and image/<token>.jpg.
package testutil

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/banshee-data/udi-dataset/internal/fsutil"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// LabelObject is one annotated object in a fixture label file.
type LabelObject struct {
	X, Y, Z              float64
	Width, Depth, Height float64
	Yaw                  float64
	Class                string
}

// LabelJSON encodes objects in the label file format.
func LabelJSON(objs []LabelObject) []byte {
	elem := make([]map[string]interface{}, 0, len(objs))
	for _, o := range objs {
		elem = append(elem, map[string]interface{}{
			"position": map[string]float64{"x": o.X, "y": o.Y, "z": o.Z},
			"size":     map[string]float64{"width": o.Width, "depth": o.Depth, "height": o.Height},
			"yaw":      o.Yaw,
			"class":    o.Class,
		})
	}
	data, err := json.Marshal(map[string]interface{}{"elem": elem})
	if err != nil {
		panic(err)
	}
	return data
}

// PointsBlob encodes points as little-endian float32 (x, y, z, intensity).
func PointsBlob(points [][4]float32) []byte {
	blob := make([]byte, 0, len(points)*16)
	var buf [4]byte
	for _, p := range points {
		for _, v := range p {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			blob = append(blob, buf[:]...)
		}
	}
	return blob
}

// Frame describes one fixture frame.
type Frame struct {
	Token   int
	Objects []LabelObject
	Points  [][4]float32

	SkipLabel bool
	SkipImage bool
}

// WriteCapture writes frames under root using fs, creating the lidar, label
// and image directories.
func WriteCapture(t *testing.T, fs fsutil.FileSystem, root string, frames ...Frame) {
	t.Helper()
	for _, dir := range []string{"lidar", "label", "image"} {
		if err := fs.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	write := func(path string, data []byte) {
		if err := fs.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	for _, f := range frames {
		write(filepath.Join(root, "lidar", fmt.Sprintf("%d.bin", f.Token)), PointsBlob(f.Points))
		if !f.SkipLabel {
			write(filepath.Join(root, "label", fmt.Sprintf("%d_bin.json", f.Token)), LabelJSON(f.Objects))
		}
		if !f.SkipImage {
			write(filepath.Join(root, "image", fmt.Sprintf("%d.jpg", f.Token)), []byte{0xff, 0xd8, 0xff, 0xd9})
		}
	}
}
