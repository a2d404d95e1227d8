package infos

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/labels"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
)

// BoxStats summarises the canonical boxes of one class. Anchor sizes for a
// detector head are usually seeded from Mean.
type BoxStats struct {
	Class string
	Count int
	Mean  boxcodec.CanonicalBox
	Boxes *mat.Dense
}

// BoxMean stacks every box of class across the collection and returns the
// per-component mean.
func BoxMean(c *InfoCollection, class string) (*BoxStats, error) {
	var boxes []boxcodec.CanonicalBox
	for i := range c.Infos {
		info := &c.Infos[i]
		for j, name := range info.GTNames {
			if name == class {
				boxes = append(boxes, info.GTBoxes[j])
			}
		}
	}
	if len(boxes) == 0 {
		return nil, fmt.Errorf("no boxes of class %q", class)
	}

	m := boxesToDense(boxes)
	s := &BoxStats{Class: class, Count: len(boxes), Boxes: m}
	col := make([]float64, len(boxes))
	for j := 0; j < boxcodec.CanonicalBoxDim; j++ {
		mat.Col(col, j, m)
		s.Mean[j] = stat.Mean(col, nil)
	}
	return s, nil
}

// AllBoxMeans computes BoxMean for every normalised class name, sorted by
// name. Classes without boxes are skipped.
func AllBoxMeans(c *InfoCollection) []*BoxStats {
	classes := labels.KnownClasses()
	sort.Strings(classes)

	var out []*BoxStats
	for _, class := range classes {
		s, err := BoxMean(c, class)
		if err != nil {
			monitoring.Logf("box mean: %v", err)
			continue
		}
		out = append(out, s)
	}
	return out
}
