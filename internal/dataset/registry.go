// Package dataset exposes info collections as datasets that load sensor
// data and evaluate detections against the external evaluator.
package dataset

import (
	"fmt"
	"sort"

	"github.com/banshee-data/udi-dataset/internal/config"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/submission"
)

// Dataset is a loaded info collection.
type Dataset interface {
	Len() int
	SensorData(idx int) (*SensorData, error)
	Evaluate(detections []submission.Detection, outputDir string) (*EvaluationResult, error)
}

// Constructor opens a dataset described by cfg.
type Constructor func(fs fsutil.FileSystem, cfg *config.Config) (Dataset, error)

// Registry maps dataset names to constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry builds a registry from an explicit name to constructor table.
func NewRegistry(table map[string]Constructor) *Registry {
	r := &Registry{constructors: make(map[string]Constructor, len(table))}
	for name, ctor := range table {
		r.constructors[name] = ctor
	}
	return r
}

// DefaultRegistry returns the registry of built-in datasets.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Constructor{
		UDIName: func(fs fsutil.FileSystem, cfg *config.Config) (Dataset, error) {
			d, err := NewUDIDataset(fs, cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	})
}

// Names returns the registered dataset names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open constructs the named dataset.
func (r *Registry) Open(name string, fs fsutil.FileSystem, cfg *config.Config) (Dataset, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q (registered: %v)", name, r.Names())
	}
	return ctor(fs, cfg)
}
