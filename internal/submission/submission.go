// Package submission converts detector outputs into the external
// evaluator's results document.
package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
)

// DefaultFilename is the results document name written into the output directory.
const DefaultFilename = "results_udi.json"

// Detection is the detector output for one frame. Each row of Boxes is a
// canonical box [x, y, z, dx, dy, dz, rz], optionally followed by (vx, vy).
type Detection struct {
	Token  int         `json:"token"`
	Boxes  [][]float64 `json:"box3d_lidar"`
	Scores []float64   `json:"scores"`
	Labels []int       `json:"label_preds"`
}

// Meta is the sensor-usage header of a submission. The evaluator requires
// all five flags even though they are all false here.
type Meta struct {
	UseCamera   bool `json:"use_camera"`
	UseLidar    bool `json:"use_lidar"`
	UseRadar    bool `json:"use_radar"`
	UseMap      bool `json:"use_map"`
	UseExternal bool `json:"use_external"`
}

// Velocity is the horizontal velocity written to the evaluator. Unknown
// components are NaN and are encoded as the bare NaN token the evaluator's
// JSON reader accepts. encoding/json rejects NaN, so the document is
// assembled by writeJSON rather than json.Marshal.
type Velocity [2]float64

func (v Velocity) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch {
		case math.IsNaN(f):
			buf.WriteString("NaN")
		case math.IsInf(f, 0):
			return fmt.Errorf("velocity component %d is infinite", i)
		default:
			buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return nil
}

// Annotation is one box in the evaluator's schema. Field names and nesting
// are fixed by the evaluator.
type Annotation struct {
	SampleToken    int        `json:"sample_token"`
	Translation    [3]float64 `json:"translation"`
	Size           [3]float64 `json:"size"`
	Rotation       [4]float64 `json:"rotation"`
	Velocity       Velocity   `json:"velocity"`
	DetectionName  string     `json:"detection_name"`
	DetectionScore float64    `json:"detection_score"`
	AttributeName  string     `json:"attribute_name"`
}

// NewAnnotation builds the evaluator annotation for a converted box.
// Attribute inference is not supported, so AttributeName is always empty.
func NewAnnotation(token int, box boxcodec.EvaluatorBox, name string) Annotation {
	return Annotation{
		SampleToken:    token,
		Translation:    [3]float64{box.Center.X, box.Center.Y, box.Center.Z},
		Size:           [3]float64{box.WLH.X, box.WLH.Y, box.WLH.Z},
		Rotation:       boxcodec.QuaternionElements(box.Orientation),
		Velocity:       Velocity{box.Velocity[0], box.Velocity[1]},
		DetectionName:  name,
		DetectionScore: box.Score,
		AttributeName:  "",
	}
}

func (a Annotation) writeJSON(buf *bytes.Buffer) error {
	field := func(name string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		buf.WriteString(strconv.Quote(name))
		buf.WriteByte(':')
		buf.Write(data)
		buf.WriteByte(',')
		return nil
	}

	buf.WriteByte('{')
	if err := field("sample_token", a.SampleToken); err != nil {
		return err
	}
	if err := field("translation", a.Translation); err != nil {
		return err
	}
	if err := field("size", a.Size); err != nil {
		return err
	}
	if err := field("rotation", a.Rotation); err != nil {
		return err
	}
	buf.WriteString(`"velocity":`)
	if err := a.Velocity.writeJSON(buf); err != nil {
		return err
	}
	buf.WriteByte(',')
	if err := field("detection_name", a.DetectionName); err != nil {
		return err
	}
	if err := field("detection_score", a.DetectionScore); err != nil {
		return err
	}
	buf.WriteString(`"attribute_name":`)
	buf.WriteString(strconv.Quote(a.AttributeName))
	buf.WriteByte('}')
	return nil
}

// Results groups annotations by frame token, keeping tokens in the order
// they were first seen and annotations in input order.
type Results struct {
	order   []int
	byToken map[int][]Annotation
}

func newResults() *Results {
	return &Results{byToken: make(map[int][]Annotation)}
}

func (r *Results) add(token int, annos ...Annotation) {
	if _, ok := r.byToken[token]; !ok {
		r.order = append(r.order, token)
		r.byToken[token] = []Annotation{}
	}
	r.byToken[token] = append(r.byToken[token], annos...)
}

// Tokens returns the grouped tokens in first-seen order.
func (r *Results) Tokens() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the annotations recorded for token.
func (r *Results) Get(token int) ([]Annotation, bool) {
	a, ok := r.byToken[token]
	return a, ok
}

// Len returns the number of distinct tokens.
func (r *Results) Len() int { return len(r.order) }

// writeJSON encodes the mapping as a JSON object keyed by token,
// preserving first-seen order.
func (r *Results) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, token := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(token)))
		buf.WriteString(":[")
		for j, a := range r.byToken[token] {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := a.writeJSON(buf); err != nil {
				return fmt.Errorf("token %d box %d: %w", token, j, err)
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

// Submission is the complete results document.
type Submission struct {
	Meta    Meta
	Results *Results
}

// Build converts detections into a submission. classNames maps label
// indices to detection names.
func Build(detections []Detection, classNames []string) (*Submission, error) {
	results := newResults()
	for _, det := range detections {
		if len(det.Scores) != len(det.Boxes) || len(det.Labels) != len(det.Boxes) {
			return nil, fmt.Errorf("frame %d: %d boxes, %d scores, %d labels", det.Token, len(det.Boxes), len(det.Scores), len(det.Labels))
		}
		annos := make([]Annotation, 0, len(det.Boxes))
		for i, row := range det.Boxes {
			label := det.Labels[i]
			if label < 0 || label >= len(classNames) {
				return nil, fmt.Errorf("frame %d box %d: label %d outside %d classes", det.Token, i, label, len(classNames))
			}
			box, err := boxcodec.FromDetectorRow(row, label, det.Scores[i])
			if err != nil {
				return nil, fmt.Errorf("frame %d box %d: %w", det.Token, i, err)
			}
			annos = append(annos, NewAnnotation(det.Token, box, classNames[label]))
		}
		results.add(det.Token, annos...)
	}
	return &Submission{Results: results}, nil
}

// Encode serialises the submission as {"meta": ..., "results": ...}.
func (s *Submission) Encode() ([]byte, error) {
	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"meta":`)
	buf.Write(meta)
	buf.WriteString(`,"results":`)
	if err := s.Results.writeJSON(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Write serialises the submission to path. The caller owns the file and
// removes it once the evaluator has consumed it.
func (s *Submission) Write(fs fsutil.FileSystem, path string) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	if err := fs.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write submission %s: %w", path, err)
	}
	return nil
}

// ReadDetections loads a JSON list of per-frame detections.
func ReadDetections(fs fsutil.FileSystem, path string) ([]Detection, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections %s: %w", path, err)
	}
	var dets []Detection
	if err := json.Unmarshal(data, &dets); err != nil {
		return nil, fmt.Errorf("decode detections %s: %w", path, err)
	}
	return dets, nil
}
