package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/config"
	"github.com/banshee-data/udi-dataset/internal/evaluator"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/infos"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
	"github.com/banshee-data/udi-dataset/internal/report"
	"github.com/banshee-data/udi-dataset/internal/submission"
)

// UDIName is the registry name of the UDI dataset.
const UDIName = "udi"

// ResultKey keys the evaluator's entries in EvaluationResult.
const ResultKey = "nusc"

// SensorData is one frame's point cloud and ground truth.
type SensorData struct {
	Token     int
	LidarPath string
	Points    []infos.Point
	Boxes     []boxcodec.CanonicalBox
	Names     []string
}

// EvaluationResult holds the text summary and per-class detail of an
// evaluation, each keyed by ResultKey.
type EvaluationResult struct {
	Results map[string]string                        `json:"results"`
	Detail  map[string]map[string]map[string]float64 `json:"detail"`

	Report  *report.Report `json:"-"`
	EvalSet string         `json:"-"`
}

// UDIDataset serves a persisted UDI info collection.
type UDIDataset struct {
	fs         fsutil.FileSystem
	cfg        *config.Config
	rootPath   string
	infoPath   string
	classNames []string
	collection *infos.InfoCollection
	bridge     *evaluator.Bridge
}

// NewUDIDataset loads the info collection named by cfg.
func NewUDIDataset(fs fsutil.FileSystem, cfg *config.Config) (*UDIDataset, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	infoPath := cfg.GetInfoPath()
	c, err := infos.Load(fs, infoPath)
	if err != nil {
		return nil, fmt.Errorf("open udi dataset: %w", err)
	}
	return &UDIDataset{
		fs:         fs,
		cfg:        cfg,
		rootPath:   cfg.GetDatasetRoot(),
		infoPath:   infoPath,
		classNames: cfg.GetClassNames(),
		collection: c,
		bridge:     evaluator.NewBridge(cfg.GetEvaluatorCommand(), fs),
	}, nil
}

// Len returns the number of frames.
func (d *UDIDataset) Len() int { return len(d.collection.Infos) }

// Version returns the collection's dataset version.
func (d *UDIDataset) Version() string { return d.collection.Metadata.Version }

// Collection returns the loaded info collection.
func (d *UDIDataset) Collection() *infos.InfoCollection { return d.collection }

// Bridge returns the evaluator bridge used by Evaluate.
func (d *UDIDataset) Bridge() *evaluator.Bridge { return d.bridge }

// SensorData reads the point cloud of frame idx and attaches its ground truth.
func (d *UDIDataset) SensorData(idx int) (*SensorData, error) {
	if idx < 0 || idx >= d.Len() {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", idx, d.Len())
	}
	info := d.collection.Infos[idx]
	points, err := infos.ReadPoints(d.fs, info.LidarPath)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", info.Token, err)
	}
	return &SensorData{
		Token:     info.Token,
		LidarPath: info.LidarPath,
		Points:    points,
		Boxes:     info.GTBoxes,
		Names:     info.GTNames,
	}, nil
}

// Evaluate writes the submission for detections into outputDir, runs the
// evaluator and assembles the report. The submission file is removed on
// every return path.
func (d *UDIDataset) Evaluate(detections []submission.Detection, outputDir string) (*EvaluationResult, error) {
	version := d.Version()
	evalSet, err := d.cfg.EvalSet(version)
	if err != nil {
		return nil, err
	}

	index := d.collection.TokenIndex()
	for _, det := range detections {
		if _, ok := index[det.Token]; !ok {
			monitoring.Logf("evaluate: detection token %d is not in %s", det.Token, d.infoPath)
		}
	}

	sub, err := submission.Build(detections, d.classNames)
	if err != nil {
		return nil, fmt.Errorf("build submission: %w", err)
	}
	if err := d.fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	resPath := filepath.Join(outputDir, submission.DefaultFilename)
	defer func() {
		if !d.fs.Exists(resPath) {
			return
		}
		if err := d.fs.Remove(resPath); err != nil {
			monitoring.Logf("evaluate: remove %s: %v", resPath, err)
		}
	}()
	if err := sub.Write(d.fs, resPath); err != nil {
		return nil, err
	}

	metrics, err := d.bridge.Run(evaluator.Request{
		RootPath:   d.rootPath,
		InfoPath:   d.infoPath,
		Version:    version,
		ResultPath: resPath,
		EvalSet:    evalSet,
		OutputDir:  outputDir,
	})
	if err != nil {
		return nil, err
	}

	rep, err := report.Assemble(version, metrics, d.classNames)
	if err != nil {
		return nil, err
	}
	return &EvaluationResult{
		Results: map[string]string{ResultKey: rep.Summary},
		Detail:  map[string]map[string]map[string]float64{ResultKey: rep.Detail},
		Report:  rep,
		EvalSet: evalSet,
	}, nil
}
