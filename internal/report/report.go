// Package report turns the evaluator's metrics summary into a per-class
// text summary, a nested detail mapping and charts.
package report

import (
	"fmt"
	"strings"

	"github.com/banshee-data/udi-dataset/internal/evaluator"
)

// DistPrefix prefixes AP keys in the detail mapping.
const DistPrefix = "dist@"

// UnknownClassError reports a requested class that the evaluator did not
// score.
type UnknownClassError struct {
	Class string
	Table string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("class %q not present in %s", e.Class, e.Table)
}

// Report is the assembled evaluation report.
type Report struct {
	Version string
	Summary string
	Classes []string
	// Detail maps class -> "dist@<threshold>" or error type -> value.
	Detail map[string]map[string]float64
	// Keys holds the detail keys of each class in metrics order.
	Keys map[string][]string
}

// Thresholds returns the AP distance thresholds reported for class.
func (r *Report) Thresholds(class string) []string {
	var out []string
	for _, k := range r.Keys[class] {
		if strings.HasPrefix(k, DistPrefix) {
			out = append(out, strings.TrimPrefix(k, DistPrefix))
		}
	}
	return out
}

// AP returns the AP of class at threshold.
func (r *Report) AP(class, threshold string) (float64, bool) {
	v, ok := r.Detail[class][DistPrefix+threshold]
	return v, ok
}

// Assemble builds the report for classNames in the given order. Every
// requested class must be present in both metric tables.
func Assemble(version string, metrics *evaluator.MetricsSummary, classNames []string) (*Report, error) {
	if metrics == nil {
		return nil, fmt.Errorf("assemble report: nil metrics")
	}
	r := &Report{
		Version: version,
		Classes: append([]string(nil), classNames...),
		Detail:  make(map[string]map[string]float64, len(classNames)),
		Keys:    make(map[string][]string, len(classNames)),
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Nusc %s Evaluation\n", version)
	for _, name := range classNames {
		aps, ok := metrics.LabelAPs.Get(name)
		if !ok {
			return nil, &UnknownClassError{Class: name, Table: "label_aps"}
		}
		tpErrs, ok := metrics.LabelTPErrors.Get(name)
		if !ok {
			return nil, &UnknownClassError{Class: name, Table: "label_tp_errors"}
		}

		detail := make(map[string]float64, len(aps.Keys)+len(tpErrs.Keys))
		keys := make([]string, 0, len(aps.Keys)+len(tpErrs.Keys))
		scores := make([]string, 0, len(aps.Keys))
		for _, k := range aps.Keys {
			v := aps.Values[k]
			detail[DistPrefix+k] = v
			keys = append(keys, DistPrefix+k)
			scores = append(scores, fmt.Sprintf("%.2f", v*100))
		}
		errVals := make([]string, 0, len(tpErrs.Keys))
		for _, k := range tpErrs.Keys {
			v := tpErrs.Values[k]
			detail[k] = v
			keys = append(keys, k)
			errVals = append(errVals, fmt.Sprintf("%.4f", v))
		}
		r.Detail[name] = detail
		r.Keys[name] = keys

		fmt.Fprintf(&sb, "%s Nusc dist AP@%s and TP errors\n", name, strings.Join(aps.Keys, ", "))
		sb.WriteString(strings.Join(scores, ", "))
		sb.WriteString("\n")
		sb.WriteString(strings.Join(tpErrs.Keys, ", ") + ": " + strings.Join(errVals, ", "))
		sb.WriteString("\n")
	}
	r.Summary = sb.String()
	return r, nil
}
