// Package labels parses per-frame LiDAR label files.
package labels

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
)

// Frame is one parsed capture frame. Boxes and Names are parallel and keep
// the order of the label file; both are empty, not nil, for a frame with no
// annotated objects.
type Frame struct {
	Token     int
	LidarPath string
	CamPath   string
	LabelPath string
	Boxes     []boxcodec.RawLabelBox
	Names     []string
}

// label file wire format: {"elem": [{position, size, yaw, class}, ...]}
type labelFile struct {
	Elem *[]labelObject `json:"elem"`
}

type labelVec struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type labelSize struct {
	Width  *float64 `json:"width"`
	Depth  *float64 `json:"depth"`
	Height *float64 `json:"height"`
}

type labelObject struct {
	Position *labelVec  `json:"position"`
	Size     *labelSize `json:"size"`
	Yaw      *float64   `json:"yaw"`
	Class    *string    `json:"class"`
}

// Parser reads label files through a FileSystem.
type Parser struct {
	fs fsutil.FileSystem

	// StrictClasses rejects class names missing from the normalisation
	// table instead of passing them through.
	StrictClasses bool
}

// NewParser creates a Parser. A nil fs uses the OS filesystem.
func NewParser(fs fsutil.FileSystem) *Parser {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Parser{fs: fs}
}

// Parse validates that the frame's three assets exist, then decodes the
// label file into raw boxes and normalised class names.
func (p *Parser) Parse(token int, lidarPath, camPath, labelPath string) (*Frame, error) {
	for _, path := range []string{lidarPath, camPath, labelPath} {
		ok, err := fsutil.CheckExists(p.fs, path)
		if err != nil {
			return nil, fmt.Errorf("frame %d: stat %s: %w", token, path, err)
		}
		if !ok {
			return nil, &MissingAssetError{Token: token, Path: path}
		}
	}

	data, err := p.fs.ReadFile(labelPath)
	if err != nil {
		return nil, fmt.Errorf("frame %d: read label %s: %w", token, labelPath, err)
	}

	var lf labelFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, &MalformedLabelError{Token: token, Path: labelPath, Reason: "invalid JSON", Err: err}
	}
	if lf.Elem == nil {
		return nil, &MalformedLabelError{Token: token, Path: labelPath, Reason: `missing "elem" list`}
	}

	objects := *lf.Elem
	frame := &Frame{
		Token:     token,
		LidarPath: lidarPath,
		CamPath:   camPath,
		LabelPath: labelPath,
		Boxes:     make([]boxcodec.RawLabelBox, 0, len(objects)),
		Names:     make([]string, 0, len(objects)),
	}

	for i, obj := range objects {
		box, err := obj.toRaw()
		if err != nil {
			return nil, &MalformedLabelError{Token: token, Path: labelPath, Reason: fmt.Sprintf("object %d: %v", i, err)}
		}
		if p.StrictClasses && !IsKnownClass(box.Class) {
			return nil, &MalformedLabelError{Token: token, Path: labelPath, Reason: fmt.Sprintf("object %d: unknown class %q", i, box.Class)}
		}
		frame.Boxes = append(frame.Boxes, box)
		frame.Names = append(frame.Names, NormalizeClass(box.Class))
	}

	monitoring.Framef(token, "parsed %d objects from %s", len(frame.Boxes), labelPath)
	return frame, nil
}

func (o labelObject) toRaw() (boxcodec.RawLabelBox, error) {
	switch {
	case o.Position == nil || o.Position.X == nil || o.Position.Y == nil || o.Position.Z == nil:
		return boxcodec.RawLabelBox{}, fmt.Errorf("position requires x, y and z")
	case o.Size == nil || o.Size.Width == nil || o.Size.Depth == nil || o.Size.Height == nil:
		return boxcodec.RawLabelBox{}, fmt.Errorf("size requires width, depth and height")
	case o.Yaw == nil:
		return boxcodec.RawLabelBox{}, fmt.Errorf("missing yaw")
	case o.Class == nil:
		return boxcodec.RawLabelBox{}, fmt.Errorf("missing class")
	}

	var box boxcodec.RawLabelBox
	box.Position.X, box.Position.Y, box.Position.Z = *o.Position.X, *o.Position.Y, *o.Position.Z
	box.Size = boxcodec.Size{Width: *o.Size.Width, Depth: *o.Size.Depth, Height: *o.Size.Height}
	box.Yaw = *o.Yaw
	box.Class = *o.Class
	return box, nil
}
