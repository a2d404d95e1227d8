// Package infos builds, persists and reads the per-frame info collection
// consumed by the detection training pipeline.
package infos

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
)

const (
	// DefaultVersion tags collections produced by Build.
	DefaultVersion = "v0.1-train"

	// DefaultInfoFilename is the collection file written under the capture root.
	DefaultInfoFilename = "infos_udi_train.cbor"
)

// FrameInfo is the persisted record for one captured frame.
// GTBoxes and GTNames are parallel; both are empty for a frame without objects.
type FrameInfo struct {
	LidarPath    string                  `cbor:"lidar_path"`
	CamFrontPath string                  `cbor:"cam_front_path"`
	Filename     string                  `cbor:"filename"`
	Token        int                     `cbor:"token"`
	GTBoxes      []boxcodec.CanonicalBox `cbor:"gt_boxes"`
	GTNames      []string                `cbor:"gt_names"`
}

// NumObjects returns the number of annotated objects in the frame.
func (f *FrameInfo) NumObjects() int { return len(f.GTBoxes) }

// Validate checks the boxes/names length invariant.
func (f *FrameInfo) Validate() error {
	if len(f.GTBoxes) != len(f.GTNames) {
		return fmt.Errorf("frame %d: %d boxes but %d names", f.Token, len(f.GTBoxes), len(f.GTNames))
	}
	return nil
}

// Metadata is the dataset-level block of a collection.
type Metadata struct {
	Version string `cbor:"version"`
}

// InfoCollection is the persisted artifact: every frame plus metadata.
type InfoCollection struct {
	Infos    []FrameInfo `cbor:"infos"`
	Metadata Metadata    `cbor:"metadata"`
}

// Validate checks every frame and rejects duplicate tokens.
func (c *InfoCollection) Validate() error {
	seen := make(map[int]bool, len(c.Infos))
	for i := range c.Infos {
		info := &c.Infos[i]
		if err := info.Validate(); err != nil {
			return err
		}
		if seen[info.Token] {
			return fmt.Errorf("duplicate frame token %d", info.Token)
		}
		seen[info.Token] = true
	}
	return nil
}

// TokenIndex maps each frame token to its position in Infos.
func (c *InfoCollection) TokenIndex() map[int]int {
	idx := make(map[int]int, len(c.Infos))
	for i, info := range c.Infos {
		idx[info.Token] = i
	}
	return idx
}

// NumObjects returns the total number of annotated objects.
func (c *InfoCollection) NumObjects() int {
	n := 0
	for i := range c.Infos {
		n += c.Infos[i].NumObjects()
	}
	return n
}

func boxesToDense(boxes []boxcodec.CanonicalBox) *mat.Dense {
	if len(boxes) == 0 {
		return nil
	}
	data := make([]float64, 0, len(boxes)*boxcodec.CanonicalBoxDim)
	for _, b := range boxes {
		data = append(data, b[:]...)
	}
	return mat.NewDense(len(boxes), boxcodec.CanonicalBoxDim, data)
}
